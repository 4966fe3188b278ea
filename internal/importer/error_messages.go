package importer

// error_messages.go maps technical errors to messages operators can act on.
//
// Codes by category:
//
//	DB001  duplicate value            "duplicate key", "violates unique"
//	DB002  missing referenced record  "foreign key"
//	DB003  database unreachable       "connection refused", "connection reset"
//	DB004  database busy              "deadlock", "timeout"
//
//	VAL001 unknown import type        "unknown import type"
//	VAL002 bad mapping configuration  "invalid mapping"
//	VAL003 missing required value     "is required"
//	VAL004 malformed request          "invalid request body"
//
//	FILE001 file too large            "file too large", "request body too large"
//	FILE002 unreadable spreadsheet    "unsupported file", "decode spreadsheet"
//	FILE003 no file in request        "no file provided"
//	FILE004 workbook without sheets   "no sheets"
//
//	IMP001 import slots exhausted     "too many imports"
//	IMP002 unknown import batch       "import batch not found"
//	IMP003 request cancelled          "context canceled"
//	IMP004 request timed out          "context deadline exceeded"
//
//	RATE001 rate limited              "rate limit"
//
// ERR000 is the fallback; check the server log for the technical error.
// Patterns are matched case-insensitively and the first match wins.

import (
	"fmt"
	"strings"
)

// UserMessage is an error rewritten for the person uploading the file.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Reference code for support
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Request lifecycle first: these wrap lower level errors.
	{"context canceled", UserMessage{"The import was cancelled", "Upload the file again", "IMP003"}},
	{"context deadline exceeded", UserMessage{"The import took too long", "Split the sheet into smaller files and upload again", "IMP004"}},
	{"too many imports", UserMessage{"Other imports are still running", "Wait a moment and try again", "IMP001"}},
	{"import batch not found", UserMessage{"That import no longer exists", "Refresh the import history", "IMP002"}},

	// Files
	{"file too large", UserMessage{"The file is larger than the upload limit", "Split the sheet into smaller files", "FILE001"}},
	{"request body too large", UserMessage{"The file is larger than the upload limit", "Split the sheet into smaller files", "FILE001"}},
	{"no file provided", UserMessage{"No file was attached", "Choose an .xlsx or .csv file to upload", "FILE003"}},
	{"no sheets", UserMessage{"The workbook has no sheets", "Check that the file is not empty", "FILE004"}},
	{"unsupported file", UserMessage{"The file type is not supported", "Save the sheet as .xlsx or .csv", "FILE002"}},
	{"decode spreadsheet", UserMessage{"The spreadsheet could not be read", "Open the file in Excel and save it again as .xlsx", "FILE002"}},

	// Validation
	{"unknown import type", UserMessage{"Unknown import type", "Use the live or order import", "VAL001"}},
	{"invalid mapping", UserMessage{"The column mapping is invalid", "Give every field a name and at least one column name", "VAL002"}},
	{"is required", UserMessage{"A required column is empty", "Fill in phone and product code for every row", "VAL003"}},
	{"invalid request body", UserMessage{"The request could not be read", "Send a multipart file upload or a JSON body", "VAL004"}},

	// Database
	{"duplicate key", UserMessage{"A record with this value already exists", "Remove the duplicate rows and upload again", "DB001"}},
	{"violates unique", UserMessage{"A record with this value already exists", "Remove the duplicate rows and upload again", "DB001"}},
	{"foreign key", UserMessage{"A referenced record does not exist", "Check the product codes in the sheet", "DB002"}},
	{"connection refused", UserMessage{"The database is unreachable", "Try again in a few moments", "DB003"}},
	{"connection reset", UserMessage{"The database connection dropped", "Try again", "DB003"}},
	{"deadlock", UserMessage{"The database is busy", "Try again", "DB004"}},
	{"timeout", UserMessage{"The database is busy", "Try again later", "DB004"}},

	{"rate limit", UserMessage{"Too many requests", "Wait a minute before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Try again or contact support",
	Code:    "ERR000",
}

// MapError returns the user message for err, or the ERR000 fallback.
// A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	text := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(text, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: X). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matched a known pattern.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}
