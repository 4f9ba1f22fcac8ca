// README: Reply texts and the command words the workflow recognizes.
package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yen1506/linebot-coffee/internal/modules/order"
)

const (
	cmdStartOrder = "下單"
	cmdQuery      = "查詢訂單"
	cmdDelete     = "刪除訂單"
	cmdCancel     = "取消訂單"
	cmdModify     = "修改訂單"
	cmdReorder    = "重新下單"
)

const (
	msgOrderInstructions = "請依下列格式填寫訂購資訊（可直接複製修改）：\n" +
		"姓名：\n電話：09xxxxxxxx\n咖啡品名：\n樣式：掛耳包或豆子\n數量：\n送達地址：郵寄地址或面交\n取貨日期：YYYYMMDD（可省略）\n備註：（可省略）"
	msgPaymentPrompt   = "請選擇付款方式：匯款 / 貨到付款 / LINE Pay"
	msgPaymentUnknown  = "⚠️ 無法辨識付款方式，請輸入：匯款、貨到付款 或 LINE Pay"
	msgAskQueryID      = "請輸入要查詢的訂單編號："
	msgAskDeleteID     = "請輸入要刪除的訂單編號："
	msgAskModifyID     = "請輸入要修改的訂單編號："
	msgNotFound        = "❌ 查無此訂單編號，請確認後重新操作。"
	msgStoreError      = "⚠️ 系統暫時無法存取訂單資料，請稍後再試。"
	msgAppendFailed    = "⚠️ 訂單送出失敗，您的資料仍保留，請再次輸入付款方式重試。"
	msgUpdateRetry     = "⚠️ 訂單更新失敗，請再傳送一次修改後的資料。"
	msgAlreadyModified = "❌ 此訂單已修改過一次，無法再次修改。如需變更，請先刪除訂單後重新下單。"
	msgModifyFormat    = "請以「欄位：內容」的格式重新傳送修改後的完整資料。"
	msgReorderPrompt   = "是否要重新下單？請回覆「是」或「否」。"
	msgGoodbye         = "好的，期待您再次光臨 ☕"
	msgHelp            = "您好！請輸入指令：\n👉 『下單』開始訂購\n👉 『查詢訂單』查詢訂單\n👉 『修改訂單』修改訂單（限一次）\n👉 『刪除訂單』取消訂單"
)

func parseFailure(err error) string {
	switch err {
	case order.ErrInvalidPhone:
		return "⚠️ 電話格式錯誤，請輸入 09 開頭的 10 位數手機號碼。"
	case order.ErrInvalidQuantity:
		return "⚠️ 數量請填寫數字。"
	case order.ErrZeroQuantity:
		return "⚠️ 數量至少為 1。"
	case order.ErrInvalidPickupDate:
		return "⚠️ 取貨日期格式錯誤，請使用 YYYYMMDD。"
	case order.ErrMissingField:
		return "⚠️ 資料不完整，請確認每個必填欄位都有填寫。"
	}
	return "⚠️ 輸入格式錯誤，請重新輸入資訊。"
}

func draftSummary(d order.Draft) string {
	return "📝 訂單內容：\n" + d.Labeled()
}

func confirmation(o order.Order) string {
	return fmt.Sprintf("✅ 已成功訂購：%s（%s）x%d\n📄 訂單編號：%s\n💳 付款方式：%s\n謝謝您的購買！",
		o.Product, o.Variant, o.Quantity, o.ID, o.Payment)
}

func bankDetails(b BankAccount) string {
	return fmt.Sprintf("🏦 匯款資訊\n銀行：%s（%s）\n帳號：%s\n匯款後請回傳帳號末五碼，謝謝！", b.Name, b.Code, b.Account)
}

// orderDetails renders every field except the owner id.
func orderDetails(o order.Order) string {
	lines := []string{
		"訂單編號：" + o.ID,
		"姓名：" + o.Name,
		"電話：" + o.Phone,
		"咖啡品名：" + o.Product,
		"樣式：" + o.Variant,
		"數量：" + strconv.Itoa(o.Quantity),
		"送達地址：" + o.Address,
		"取貨日期：" + o.PickupDate,
		"備註：" + o.Note,
		"付款方式：" + string(o.Payment),
		"狀態：" + o.Status,
		"建立時間：" + o.CreatedAt,
	}
	return strings.Join(lines, "\n")
}

// querySummary is the fixed subset shown for a lookup.
func querySummary(o order.Order) string {
	lines := []string{
		"📄 訂單編號：" + o.ID,
		"咖啡品名：" + o.Product,
		"樣式：" + o.Variant,
		"數量：" + strconv.Itoa(o.Quantity),
		"送達地址：" + o.Address,
		"取貨日期：" + o.PickupDate,
		"付款方式：" + string(o.Payment),
		"狀態：" + o.Status,
		"建立時間：" + o.CreatedAt,
	}
	return strings.Join(lines, "\n")
}
