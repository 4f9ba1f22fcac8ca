// README: Order row layout, field labels and the draft captured during a conversation.
package order

import (
	"strconv"
	"strings"

	"github.com/yen1506/linebot-coffee/internal/sheet"
)

const (
	StatusProcessing = "處理中"
	ModifiedMarker   = " (已修改)"
	TimeLayout       = "2006-01-02 15:04"
	DateLayout       = "2006-01-02"
)

// Live table columns, in sheet order.
const (
	ColID = iota
	ColOwner
	ColName
	ColPhone
	ColProduct
	ColVariant
	ColQuantity
	ColAddress
	ColPickupDate
	ColNote
	ColPayment
	ColStatus
	ColCreatedAt
	ColUnitPrice
	ColLineTotal
)

var Columns = []string{
	"訂單編號", "使用者ID", "姓名", "電話", "咖啡品名", "樣式", "數量",
	"送達地址", "取貨日期", "備註", "付款方式", "狀態", "建立時間", "單價", "小計",
}

const DeletedAtColumn = "刪除時間"

// ArchiveColumns is the live layout plus the deletion time.
var ArchiveColumns = append(append([]string(nil), Columns...), DeletedAtColumn)

type Order struct {
	ID         string
	OwnerID    string
	Name       string
	Phone      string
	Product    string
	Variant    string
	Quantity   int
	Address    string
	PickupDate string
	Note       string
	Payment    PaymentMethod
	Status     string
	CreatedAt  string
	UnitPrice  string
	LineTotal  string
}

// Modified reports whether the order already used its single edit.
func (o Order) Modified() bool {
	return strings.Contains(o.CreatedAt, strings.TrimSpace(ModifiedMarker))
}

func (o Order) Row() []string {
	return []string{
		o.ID, o.OwnerID, o.Name, o.Phone, o.Product, o.Variant, strconv.Itoa(o.Quantity),
		o.Address, o.PickupDate, o.Note, string(o.Payment), o.Status, o.CreatedAt, o.UnitPrice, o.LineTotal,
	}
}

func FromRow(row []string) Order {
	r := sheet.Pad(row, len(Columns))
	qty, _ := strconv.Atoi(strings.TrimSpace(r[ColQuantity]))
	return Order{
		ID:         r[ColID],
		OwnerID:    r[ColOwner],
		Name:       r[ColName],
		Phone:      r[ColPhone],
		Product:    r[ColProduct],
		Variant:    r[ColVariant],
		Quantity:   qty,
		Address:    r[ColAddress],
		PickupDate: r[ColPickupDate],
		Note:       r[ColNote],
		Payment:    PaymentMethod(r[ColPayment]),
		Status:     r[ColStatus],
		CreatedAt:  r[ColCreatedAt],
		UnitPrice:  r[ColUnitPrice],
		LineTotal:  r[ColLineTotal],
	}
}

// FromNamedRow reads an order from a row whose column positions come from
// its own header (see sheet.ColumnIndex). Absent columns read as blank.
func FromNamedRow(idx map[string]int, row []string) Order {
	canon := make([]string, len(Columns))
	for i, name := range Columns {
		if j, ok := idx[name]; ok && j < len(row) {
			canon[i] = strings.TrimSpace(row[j])
		}
	}
	return FromRow(canon)
}

// Draft holds parsed but unconfirmed order fields.
type Draft struct {
	Name       string
	Phone      string `validate:"omitempty,twmobile"`
	Product    string
	Variant    string
	Quantity   int `validate:"min=1"`
	Address    string
	PickupDate string `validate:"omitempty,datetime=2006-01-02"`
	Note       string
}

// Apply copies the draft fields onto o, leaving identity, payment and status alone.
func (d Draft) Apply(o Order) Order {
	o.Name = d.Name
	o.Phone = d.Phone
	o.Product = d.Product
	o.Variant = d.Variant
	o.Quantity = d.Quantity
	o.Address = d.Address
	o.PickupDate = d.PickupDate
	o.Note = d.Note
	return o
}

// DraftOf extracts the editable fields of an order.
func DraftOf(o Order) Draft {
	return Draft{
		Name:       o.Name,
		Phone:      o.Phone,
		Product:    o.Product,
		Variant:    o.Variant,
		Quantity:   o.Quantity,
		Address:    o.Address,
		PickupDate: o.PickupDate,
		Note:       o.Note,
	}
}

// Field keys used for labeled input.
const (
	FieldName       = "name"
	FieldPhone      = "phone"
	FieldProduct    = "product"
	FieldVariant    = "variant"
	FieldQuantity   = "quantity"
	FieldAddress    = "address"
	FieldPickupDate = "pickup_date"
	FieldNote       = "note"
)

var RequiredFields = []string{FieldName, FieldPhone, FieldProduct, FieldVariant, FieldQuantity, FieldAddress}

// FieldLabels is the canonical label per field, in form order.
var FieldLabels = []struct {
	Field string
	Label string
}{
	{FieldName, "姓名"},
	{FieldPhone, "電話"},
	{FieldProduct, "咖啡品名"},
	{FieldVariant, "樣式"},
	{FieldQuantity, "數量"},
	{FieldAddress, "送達地址"},
	{FieldPickupDate, "取貨日期"},
	{FieldNote, "備註"},
}

var labelAliases = map[string]string{
	"姓名":   FieldName,
	"電話":   FieldPhone,
	"手機":   FieldPhone,
	"咖啡品名": FieldProduct,
	"咖啡名稱": FieldProduct,
	"品名":   FieldProduct,
	"樣式":   FieldVariant,
	"數量":   FieldQuantity,
	"送達地址": FieldAddress,
	"取貨方式": FieldAddress,
	"地址":   FieldAddress,
	"取貨日期": FieldPickupDate,
	"備註":   FieldNote,
}

// Labeled renders the draft as label:value lines for copy and edit.
func (d Draft) Labeled() string {
	values := map[string]string{
		FieldName:       d.Name,
		FieldPhone:      d.Phone,
		FieldProduct:    d.Product,
		FieldVariant:    d.Variant,
		FieldQuantity:   strconv.Itoa(d.Quantity),
		FieldAddress:    d.Address,
		FieldPickupDate: d.PickupDate,
		FieldNote:       d.Note,
	}
	var b strings.Builder
	for i, fl := range FieldLabels {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(fl.Label)
		b.WriteString("：")
		b.WriteString(values[fl.Field])
	}
	return b.String()
}
