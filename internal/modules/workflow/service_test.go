// README: Workflow tests: transition table, end-to-end order/delete/modify flows and failure handling.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yen1506/linebot-coffee/internal/modules/conversation"
	"github.com/yen1506/linebot-coffee/internal/modules/journal"
	"github.com/yen1506/linebot-coffee/internal/modules/order"
	"github.com/yen1506/linebot-coffee/internal/sheet"
)

const orderForm = "姓名：王小明\n電話：0912345678\n咖啡品名：耶加雪菲\n樣式：豆子\n數量：2\n送達地址：台北市信義區\n備註："

type fixture struct {
	svc      *Service
	sessions *conversation.Store
	live     *sheet.MemoryTable
	archive  *sheet.MemoryTable
	journal  *recordingJournal
}

type recordingJournal struct {
	mu     sync.Mutex
	events []journal.Event
}

func (j *recordingJournal) Record(_ context.Context, e journal.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
	return nil
}

func setupTestService(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	wb := sheet.NewMemoryWorkbook()
	live, err := wb.MemoryTable(ctx, "Orders", order.Columns)
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	archive, err := wb.MemoryTable(ctx, "DeletedOrders", order.ArchiveColumns)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	sessions := conversation.NewStore()
	j := &recordingJournal{}
	loc := time.FixedZone("Asia/Taipei", 8*3600)
	svc := NewService(order.NewStore(live, archive), sessions, j, Config{
		Location: loc,
		Bank:     BankAccount{Name: "台灣銀行", Code: "004", Account: "123-456-789"},
	}, nil)

	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("ID%06d", n)
	}
	svc.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, loc) }
	return &fixture{svc: svc, sessions: sessions, live: live, archive: archive, journal: j}
}

func (f *fixture) send(t *testing.T, owner, text string) []string {
	t.Helper()
	return f.svc.Handle(context.Background(), owner, text)
}

func (f *fixture) liveRows(t *testing.T) [][]string {
	t.Helper()
	rows, err := f.live.Rows(context.Background())
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	return rows[1:]
}

func (f *fixture) state(owner string) conversation.State {
	return f.sessions.Get(owner).State
}

func assertContains(t *testing.T, replies []string, want string) {
	t.Helper()
	if !strings.Contains(strings.Join(replies, "\n"), want) {
		t.Fatalf("replies %q do not contain %q", replies, want)
	}
}

// placeOrder runs the start-order flow to completion and returns the order id.
func (f *fixture) placeOrder(t *testing.T, owner string) string {
	t.Helper()
	f.send(t, owner, "下單")
	f.send(t, owner, orderForm)
	f.send(t, owner, "匯款")
	rows := f.liveRows(t)
	return rows[len(rows)-1][order.ColID]
}

func TestHandlersCoverEveryState(t *testing.T) {
	for _, st := range conversation.States {
		if _, ok := handlers[st]; !ok {
			t.Errorf("no handler for state %s", st)
		}
	}
	if len(handlers) != len(conversation.States) {
		t.Errorf("handler table has %d entries, want %d", len(handlers), len(conversation.States))
	}
}

func TestPlaceOrderEndToEnd(t *testing.T) {
	f := setupTestService(t)

	replies := f.send(t, "U1", "下單")
	assertContains(t, replies, "姓名")
	if f.state("U1") != conversation.StateOrdering {
		t.Fatalf("expected ordering, got %s", f.state("U1"))
	}

	replies = f.send(t, "U1", orderForm)
	assertContains(t, replies, "耶加雪菲")
	assertContains(t, replies, "付款方式")
	if f.state("U1") != conversation.StateWaitingPayment {
		t.Fatalf("expected waiting_payment, got %s", f.state("U1"))
	}
	if len(f.liveRows(t)) != 0 {
		t.Fatal("draft must not be persisted before payment")
	}

	replies = f.send(t, "U1", "匯款")
	assertContains(t, replies, "ID000001")
	assertContains(t, replies, "123-456-789")
	if f.state("U1") != conversation.StateInit {
		t.Fatalf("expected init, got %s", f.state("U1"))
	}

	rows := f.liveRows(t)
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	got := order.FromRow(rows[0])
	want := order.Order{
		ID: "ID000001", OwnerID: "U1", Name: "王小明", Phone: "0912345678", Product: "耶加雪菲",
		Variant: "豆子", Quantity: 2, Address: "台北市信義區", Payment: order.PaymentBankTransfer,
		Status: order.StatusProcessing, CreatedAt: "2026-10-18 09:30",
	}
	if got != want {
		t.Fatalf("row mismatch:\n got %+v\nwant %+v", got, want)
	}
	if len(f.journal.events) != 1 || f.journal.events[0].Kind != journal.KindPlaced {
		t.Fatalf("expected placed event, got %+v", f.journal.events)
	}
}

func TestCashPaymentHasNoBankDetails(t *testing.T) {
	f := setupTestService(t)
	f.send(t, "U1", "下單")
	f.send(t, "U1", orderForm)
	replies := f.send(t, "U1", "貨到付款")
	if len(replies) != 1 || strings.Contains(replies[0], "帳號") {
		t.Fatalf("unexpected replies: %q", replies)
	}
}

func TestInvalidFormStaysOrdering(t *testing.T) {
	f := setupTestService(t)
	f.send(t, "U1", "下單")
	replies := f.send(t, "U1", strings.Replace(orderForm, "0912345678", "12345", 1))
	assertContains(t, replies, "電話格式錯誤")
	if f.state("U1") != conversation.StateOrdering || f.sessions.Get("U1").Draft != nil {
		t.Fatalf("expected ordering without draft, got %+v", f.sessions.Get("U1"))
	}
}

func TestUnknownPaymentReprompts(t *testing.T) {
	f := setupTestService(t)
	f.send(t, "U1", "下單")
	f.send(t, "U1", orderForm)

	replies := f.send(t, "U1", "信用卡")
	assertContains(t, replies, "無法辨識付款方式")
	if f.state("U1") != conversation.StateWaitingPayment || f.sessions.Get("U1").Draft == nil {
		t.Fatal("draft must survive an unrecognized payment reply")
	}

	// commands other than 下單 are not recognized mid-flow
	f.send(t, "U1", "查詢訂單")
	if f.state("U1") != conversation.StateWaitingPayment {
		t.Fatalf("expected waiting_payment, got %s", f.state("U1"))
	}
}

func TestStartOrderDiscardsDraft(t *testing.T) {
	f := setupTestService(t)
	f.send(t, "U1", "下單")
	f.send(t, "U1", orderForm)
	f.send(t, "U1", "下單")
	sess := f.sessions.Get("U1")
	if sess.State != conversation.StateOrdering || sess.Draft != nil {
		t.Fatalf("expected fresh ordering session, got %+v", sess)
	}
}

func TestAppendFailureKeepsDraft(t *testing.T) {
	f := setupTestService(t)
	f.send(t, "U1", "下單")
	f.send(t, "U1", orderForm)

	f.live.FailNext(sheet.OpAppend, errors.New("sheets unavailable"))
	replies := f.send(t, "U1", "匯款")
	assertContains(t, replies, "資料仍保留")
	if f.state("U1") != conversation.StateWaitingPayment || f.sessions.Get("U1").Draft == nil {
		t.Fatal("draft must be kept for retry")
	}

	replies = f.send(t, "U1", "匯款")
	assertContains(t, replies, "訂單編號")
	if len(f.liveRows(t)) != 1 {
		t.Fatalf("expected exactly one row after retry, got %d", len(f.liveRows(t)))
	}
}

func TestDeleteOwnOrder(t *testing.T) {
	f := setupTestService(t)
	id := f.placeOrder(t, "U1")

	replies := f.send(t, "U1", "刪除訂單")
	assertContains(t, replies, "訂單編號")
	if f.state("U1") != conversation.StateWaitingDeleteID {
		t.Fatalf("expected waiting_delete_id, got %s", f.state("U1"))
	}

	replies = f.send(t, "U1", id)
	assertContains(t, replies, "已刪除")
	assertContains(t, replies, "王小明")
	if strings.Contains(strings.Join(replies, ""), "U1") {
		t.Fatal("owner id must not be echoed")
	}
	if len(f.liveRows(t)) != 0 {
		t.Fatal("live row not removed")
	}
	archived, _ := f.archive.Rows(context.Background())
	if len(archived) != 2 || archived[1][order.ColID] != id || archived[1][len(order.ArchiveColumns)-1] != "2026-10-18 09:30" {
		t.Fatalf("unexpected archive: %v", archived)
	}
	if f.state("U1") != conversation.StateInit {
		t.Fatalf("expected init, got %s", f.state("U1"))
	}
}

func TestDeleteForeignOrderNotFound(t *testing.T) {
	f := setupTestService(t)
	id := f.placeOrder(t, "owner")
	before := f.liveRows(t)

	f.send(t, "intruder", "刪除訂單")
	replies := f.send(t, "intruder", id)
	assertContains(t, replies, "查無此訂單")
	if f.state("intruder") != conversation.StateInit {
		t.Fatalf("expected init, got %s", f.state("intruder"))
	}
	after := f.liveRows(t)
	if len(after) != len(before) || !sheet.SameRow(after[0], before[0]) {
		t.Fatal("live table changed")
	}
}

func TestDeleteInlineID(t *testing.T) {
	f := setupTestService(t)
	id := f.placeOrder(t, "U1")
	replies := f.send(t, "U1", "刪除訂單 "+id)
	assertContains(t, replies, "已刪除")
	if len(f.liveRows(t)) != 0 {
		t.Fatal("inline delete did not remove the row")
	}
}

func TestDeleteStoreFailureReturnsInit(t *testing.T) {
	f := setupTestService(t)
	id := f.placeOrder(t, "U1")
	f.send(t, "U1", "刪除訂單")
	f.archive.FailNext(sheet.OpAppend, errors.New("down"))

	replies := f.send(t, "U1", id)
	assertContains(t, replies, "系統暫時無法")
	if f.state("U1") != conversation.StateInit {
		t.Fatalf("expected init, got %s", f.state("U1"))
	}
	if len(f.liveRows(t)) != 1 {
		t.Fatal("live row must remain when archiving fails")
	}
}

func TestModifyOnceThenRefuse(t *testing.T) {
	f := setupTestService(t)
	id := f.placeOrder(t, "U1")

	f.send(t, "U1", "修改訂單")
	replies := f.send(t, "U1", id)
	assertContains(t, replies, "姓名：王小明")
	if f.state("U1") != conversation.StateModifying {
		t.Fatalf("expected modifying, got %s", f.state("U1"))
	}
	pm := f.sessions.Get("U1").Modify
	if pm == nil || pm.OrderID != id || pm.Position != 2 {
		t.Fatalf("unexpected pending modify: %+v", pm)
	}

	edited := strings.Replace(orderForm, "數量：2", "數量：5", 1)
	replies = f.send(t, "U1", edited)
	assertContains(t, replies, "已修改")
	if f.state("U1") != conversation.StateInit {
		t.Fatalf("expected init, got %s", f.state("U1"))
	}

	got := order.FromRow(f.liveRows(t)[0])
	if got.Quantity != 5 || got.ID != id || got.OwnerID != "U1" {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.Payment != order.PaymentBankTransfer || got.Status != order.StatusProcessing {
		t.Fatalf("payment and status must be preserved: %+v", got)
	}
	if got.CreatedAt != "2026-10-18 09:30"+order.ModifiedMarker {
		t.Fatalf("missing modified marker: %q", got.CreatedAt)
	}

	f.send(t, "U1", "修改訂單")
	replies = f.send(t, "U1", id)
	assertContains(t, replies, "已修改過一次")
	if f.state("U1") != conversation.StateInit {
		t.Fatalf("expected init after refusal, got %s", f.state("U1"))
	}
}

func TestModifyForeignOrderNotFound(t *testing.T) {
	f := setupTestService(t)
	id := f.placeOrder(t, "owner")
	replies := f.send(t, "intruder", "修改訂單 "+id)
	assertContains(t, replies, "查無此訂單")
	if f.state("intruder") != conversation.StateInit {
		t.Fatalf("expected init, got %s", f.state("intruder"))
	}
}

func TestModifyRejectsBadInput(t *testing.T) {
	f := setupTestService(t)
	id := f.placeOrder(t, "U1")
	f.send(t, "U1", "修改訂單 "+id)

	replies := f.send(t, "U1", "隨便打打")
	assertContains(t, replies, "欄位：內容")
	if f.state("U1") != conversation.StateModifying {
		t.Fatalf("expected modifying, got %s", f.state("U1"))
	}
}

func TestModifyWriteFailureAllowsOneRetry(t *testing.T) {
	f := setupTestService(t)
	id := f.placeOrder(t, "U1")
	f.send(t, "U1", "修改訂單 "+id)
	edited := strings.Replace(orderForm, "數量：2", "數量：3", 1)

	f.live.FailNext(sheet.OpUpdate, errors.New("down"))
	replies := f.send(t, "U1", edited)
	assertContains(t, replies, "更新失敗")
	if f.state("U1") != conversation.StateModifying {
		t.Fatalf("expected modifying kept for retry, got %s", f.state("U1"))
	}

	f.live.FailNext(sheet.OpUpdate, errors.New("down"))
	replies = f.send(t, "U1", edited)
	assertContains(t, replies, "系統暫時無法")
	if f.state("U1") != conversation.StateInit {
		t.Fatalf("expected init after second failure, got %s", f.state("U1"))
	}
	if order.FromRow(f.liveRows(t)[0]).Modified() {
		t.Fatal("failed writes must not mark the order modified")
	}
}

func TestQueryOrder(t *testing.T) {
	f := setupTestService(t)
	id := f.placeOrder(t, "U1")

	f.send(t, "U1", "查詢訂單")
	replies := f.send(t, "U1", id)
	assertContains(t, replies, "耶加雪菲")
	assertContains(t, replies, "處理中")
	if strings.Contains(strings.Join(replies, ""), "0912345678") {
		t.Fatal("query summary should not include the phone number")
	}
	if f.state("U1") != conversation.StateInit {
		t.Fatalf("expected init, got %s", f.state("U1"))
	}

	f.send(t, "U1", "查詢訂單")
	replies = f.send(t, "U1", "NOPE0000")
	assertContains(t, replies, "查無此訂單")
	if f.state("U1") != conversation.StateInit {
		t.Fatalf("expected init, got %s", f.state("U1"))
	}
}

func TestQueryStoreFailure(t *testing.T) {
	f := setupTestService(t)
	f.send(t, "U1", "查詢訂單")
	f.live.FailNext(sheet.OpRows, errors.New("down"))
	replies := f.send(t, "U1", "ID000001")
	assertContains(t, replies, "系統暫時無法")
	if f.state("U1") != conversation.StateInit {
		t.Fatalf("expected init, got %s", f.state("U1"))
	}
}

func TestConfirmReorder(t *testing.T) {
	f := setupTestService(t)
	replies := f.send(t, "U1", "重新下單")
	assertContains(t, replies, "是否要重新下單")
	if f.state("U1") != conversation.StateConfirmReorder {
		t.Fatalf("expected confirm_reorder, got %s", f.state("U1"))
	}
	f.send(t, "U1", "是")
	if f.state("U1") != conversation.StateOrdering {
		t.Fatalf("expected ordering, got %s", f.state("U1"))
	}

	f.send(t, "U2", "重新下單")
	replies = f.send(t, "U2", "不用了")
	assertContains(t, replies, "期待")
	if f.state("U2") != conversation.StateInit {
		t.Fatalf("expected init, got %s", f.state("U2"))
	}
}

func TestInitShowsHelp(t *testing.T) {
	f := setupTestService(t)
	replies := f.send(t, "U1", "哈囉")
	assertContains(t, replies, "下單")
	if f.state("U1") != conversation.StateInit {
		t.Fatalf("expected init, got %s", f.state("U1"))
	}
}

func TestConcurrentPaymentRepliesCommitOnce(t *testing.T) {
	f := setupTestService(t)
	var mu sync.Mutex
	n := 0
	f.svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("C%07d", n)
	}
	f.send(t, "U1", "下單")
	f.send(t, "U1", orderForm)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.Handle(context.Background(), "U1", "匯款")
		}()
	}
	wg.Wait()

	if rows := f.liveRows(t); len(rows) != 1 {
		t.Fatalf("expected one committed order, got %d", len(rows))
	}
}
