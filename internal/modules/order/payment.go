// README: Payment method enumeration and fuzzy classification of user replies.
package order

import "strings"

type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "匯款"
	PaymentCash         PaymentMethod = "貨到付款"
	PaymentLinePay      PaymentMethod = "LINE Pay"
)

// PaymentMethods lists the accepted methods with the keywords that select them.
// Earlier entries win when a reply matches more than one.
var PaymentMethods = []struct {
	Method   PaymentMethod
	Keywords []string
}{
	{PaymentBankTransfer, []string{"匯款", "轉帳", "atm"}},
	{PaymentCash, []string{"貨到付款", "現金", "面交付款", "取貨付款"}},
	{PaymentLinePay, []string{"linepay"}},
}

// ClassifyPayment matches a reply against the keywords by containment after
// width folding, lowercasing and dropping spaces.
func ClassifyPayment(text string) (PaymentMethod, bool) {
	key := foldKey(text)
	if key == "" {
		return "", false
	}
	for _, pm := range PaymentMethods {
		for _, kw := range pm.Keywords {
			if strings.Contains(key, foldKey(kw)) {
				return pm.Method, true
			}
		}
	}
	return "", false
}

func foldKey(s string) string {
	s = strings.ToLower(Normalize(s))
	return strings.Join(strings.Fields(s), "")
}
