// Package importer turns loosely formatted order spreadsheets into order records.
//
// The package holds the domain logic of the live and order import endpoints,
// independent of HTTP or PostgreSQL. Web handlers, tests, and the store
// package all plug into the same small set of interfaces defined here.
//
// # Flow
//
//  1. A [Decoder] turns the uploaded file into [Row] values (header -> cell).
//  2. [LoadMappings] resolves, per canonical field, the header aliases to look
//     for. Persisted configuration is merged with the built-in defaults.
//  3. [FindColumnValue] picks the cell for each field using an
//     exact -> case-folded -> whitespace-insensitive cascade.
//  4. Coercers ([ParsePrice], [ParseDate], [ParseDelivery], ...) turn raw cells
//     into typed values, returning nil instead of failing.
//  5. [Pipeline.Run] validates each row, resolves the product code, and stores
//     the record inside a per-row transaction.
//  6. [Report] summarizes the run into a [BatchResult] with at most
//     [MaxReportedErrors] row messages.
//
// # Schemas
//
// Each import type is described by a [Schema] registered with [RegisterSchema].
// A schema lists the canonical fields, their default aliases, whether they are
// required by default, and how a coerced value lands on [OrderRecord]:
//
//	importer.RegisterSchema(importer.Schema{
//	    Type: importer.TypeLive,
//	    Fields: []importer.FieldSpec{
//	        {Name: importer.FieldPhone, Required: true, Aliases: phoneAliases, Assign: assignPhone},
//	    },
//	})
//
// # Error Handling
//
// Row failures never abort a run. They are reported as "Row <n>: <message>"
// where n is the 1-based spreadsheet line (the header is line 1). Technical
// errors that reach HTTP callers are mapped to user messages with [MapError].
package importer
