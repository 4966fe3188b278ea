package importer

// Built-in header spellings seen in shop spreadsheets. Mongolian Cyrillic,
// transliterated Latin, and English variants are all listed because the
// sheets come from different operators and tools.
var (
	phoneAliases = []string{
		"дугаар", "Дугаар", "DUGAAR", "Dugaar", "Утас", "phone", "Phone", "утас",
		"Утасны дугаар", "утасны дугаар", "Утасны", "утасны", "Phone Number",
		"phone_number", "PHONE", "Телефон", "телефон", "Tel", "tel", "Telephone", "telephone",
	}
	codeAliases = []string{
		"код", "Код", "kod", "Kod", "Барааны код", "КОД", "барааны код",
	}
	priceAliases = []string{
		"үнэ", "Үнэ", "price", "Price", "PRICE",
	}
	featureAliases = []string{
		"тайлбар", "Тайлбар", "TAILBAR", "Tailbar", "Онцлог", "feature", "Feature", "онцлог", "FEATURE",
	}
	commentAliases = []string{
		"nemelt tailbar", "Nemelt tailbar", "NEMELT TAILBAR", "нэмэлт тайлбар",
		"Нэмэлт тайлбар", "НЭМЭЛТ ТАЙЛБАР", "comment", "Comment", "COMMENT",
	}
	numberAliases = []string{
		"Тоо", "тоо", "TOO", "Too", "Тоо ширхэг", "тоо ширхэг", "number", "Number", "NUMBER",
	}
	orderDateAliases = []string{
		"Захиалгын огноо", "захиалгын огноо", "ЗАХИАЛГЫН ОГНОО", "order_date",
		"Order Date", "order date", "Order date", "ORDER_DATE",
	}
	receivedDateAliases = []string{
		"Ирж авсан", "ирж авсан", "ИРЖ АВСАН", "Ирж авсан огноо", "ирж авсан огноо",
		"received_date", "Received Date",
	}
	paidDateAliases = []string{
		"Гүйлгээний огноо", "гүйлгээний огноо", "ГҮЙЛГЭЭНИЙ ОГНОО", "Төлбөрийн огноо",
		"төлбөрийн огноо", "ТӨЛБӨРИЙН ОГНОО", "paid_date", "Paid Date", "paid date",
		"PAID_DATE", "Transaction Date", "transaction_date",
	}
	deliveryAliases = []string{
		"Хүргэлттэй", "with_delivery", "With Delivery", "хүргэлттэй",
	}
	tallyAliases = []string{
		"Тооллого", "тооллого", "TOOLLOGO", "Toollogo", "Тооллого багана",
	}
)

// commonFields are shared by the live and order pipelines.
func commonFields() []FieldSpec {
	return []FieldSpec{
		{Name: FieldPhone, Required: true, Aliases: phoneAliases, Assign: func(r *OrderRecord, v Cell) {
			r.Phone = CellText(v)
		}},
		{Name: FieldCode, Required: true, Aliases: codeAliases, Assign: func(r *OrderRecord, v Cell) {
			r.ProductCode = CellText(v)
		}},
		{Name: FieldPrice, Aliases: priceAliases, Assign: func(r *OrderRecord, v Cell) {
			r.Price = ParsePrice(v)
		}},
		{Name: FieldFeature, Aliases: featureAliases, Assign: func(r *OrderRecord, v Cell) {
			r.Feature = ParseText(v)
		}},
		{Name: FieldComment, Aliases: commentAliases, Assign: func(r *OrderRecord, v Cell) {
			r.Comment = ParseText(v)
		}},
		{Name: FieldNumber, Aliases: numberAliases, Assign: func(r *OrderRecord, v Cell) {
			r.Quantity = ParseQuantity(v)
		}},
		{Name: FieldOrderDate, Aliases: orderDateAliases, Assign: func(r *OrderRecord, v Cell) {
			r.OrderDate = ParseDate(v)
		}},
		{Name: FieldReceivedDate, Aliases: receivedDateAliases, Assign: func(r *OrderRecord, v Cell) {
			r.ReceivedDate = ParseDate(v)
		}},
		{Name: FieldPaidDate, Aliases: paidDateAliases, Assign: func(r *OrderRecord, v Cell) {
			r.PaidDate = ParseDate(v)
		}},
		{Name: FieldWithDelivery, Aliases: deliveryAliases, Assign: func(r *OrderRecord, v Cell) {
			d := ParseDelivery(v)
			r.WithDelivery = d.With
			if d.Code != nil {
				r.Metadata[MetaDeliveryCode] = *d.Code
			}
		}},
	}
}

func init() {
	RegisterSchema(Schema{Type: TypeLive, Fields: commonFields()})

	RegisterSchema(Schema{
		Type: TypeOrder,
		Fields: append(commonFields(), FieldSpec{
			Name:    FieldTally,
			Aliases: tallyAliases,
			Assign: func(r *OrderRecord, v Cell) {
				if t := ParseTally(v); t != nil {
					r.Metadata[MetaTally] = *t
				}
			},
		}),
	})
}
