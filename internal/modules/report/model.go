// README: Price and summary table layouts.
package report

var (
	PriceColumns    = []string{"咖啡品名", "樣式", "單價"}
	MonthlyColumns  = []string{"月份", "咖啡品名", "樣式", "單價", "總數量", "總金額"}
	CustomerColumns = []string{"姓名", "咖啡品名", "樣式", "訂單數", "總金額"}
)

const unknownMonth = "未知"

type priceKey struct {
	product string
	variant string
}

type monthlyKey struct {
	month     string
	product   string
	variant   string
	unitPrice string
}

type customerKey struct {
	name    string
	product string
	variant string
}
