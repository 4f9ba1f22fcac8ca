// README: Conversational order workflow: one inbound text in, reply texts out.
package workflow

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yen1506/linebot-coffee/internal/modules/conversation"
	"github.com/yen1506/linebot-coffee/internal/modules/journal"
	"github.com/yen1506/linebot-coffee/internal/modules/order"
)

type OrderStore interface {
	Append(ctx context.Context, o order.Order) error
	FindByIDAndOwner(ctx context.Context, id, owner string) (order.Located, error)
	ArchiveAndDelete(ctx context.Context, pos int, row []string, deletedAt string) error
	UpdateRow(ctx context.Context, pos int, o order.Order) error
}

type Journal interface {
	Record(ctx context.Context, e journal.Event) error
}

type BankAccount struct {
	Name    string
	Code    string
	Account string
}

type Config struct {
	Location *time.Location
	Bank     BankAccount
}

type Service struct {
	store    OrderStore
	sessions *conversation.Store
	parser   *order.Parser
	journal  Journal
	cfg      Config
	log      *zap.Logger
	newID    func() string
	now      func() time.Time
}

func NewService(store OrderStore, sessions *conversation.Store, j Journal, cfg Config, log *zap.Logger) *Service {
	if j == nil {
		j = journal.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		store:    store,
		sessions: sessions,
		parser:   order.NewParser(),
		journal:  j,
		cfg:      cfg,
		log:      log,
		newID:    order.NewID,
		now:      time.Now,
	}
}

// turn is the working copy of one user's session for a single message.
type turn struct {
	ctx   context.Context
	owner string
	text  string
	sess  conversation.Session
}

type handler func(s *Service, t *turn) []string

// handlers has one entry per conversation.State.
var handlers = map[conversation.State]handler{
	conversation.StateInit:            (*Service).handleInit,
	conversation.StateOrdering:        (*Service).handleOrdering,
	conversation.StateWaitingPayment:  (*Service).handleWaitingPayment,
	conversation.StateWaitingDeleteID: (*Service).handleDeleteID,
	conversation.StateWaitingModifyID: (*Service).handleModifyID,
	conversation.StateModifying:       (*Service).handleModifying,
	conversation.StateQueryingOrderID: (*Service).handleQuery,
	conversation.StateConfirmReorder:  (*Service).handleConfirmReorder,
}

// Handle processes one message from owner. Turns of the same owner run one at a time.
func (s *Service) Handle(ctx context.Context, owner, text string) (replies []string) {
	unlock := s.sessions.Lock(owner)
	defer unlock()

	t := &turn{ctx: ctx, owner: owner, text: strings.TrimSpace(text), sess: s.sessions.Get(owner)}
	from := t.sess.State

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("workflow panic", zap.String("owner_id", owner), zap.Any("panic", r))
			s.sessions.Clear(owner)
			replies = []string{msgStoreError}
		}
	}()

	replies = s.dispatch(t)
	s.sessions.Set(owner, t.sess)
	s.log.Debug("turn",
		zap.String("owner_id", owner),
		zap.Stringer("from", from),
		zap.Stringer("to", t.sess.State),
	)
	return replies
}

func (s *Service) dispatch(t *turn) []string {
	if replies, ok := s.command(t); ok {
		return replies
	}
	h, ok := handlers[t.sess.State]
	if !ok {
		t.sess = conversation.Session{}
		return []string{msgHelp}
	}
	return h(s, t)
}

// command handles the global commands. "下單" is honored in every state and
// discards any draft; the rest are ignored while a mid-flow state is pending.
func (s *Service) command(t *turn) ([]string, bool) {
	fields := strings.Fields(order.Normalize(t.text))
	if len(fields) == 0 {
		return nil, false
	}
	cmd, arg := fields[0], strings.Join(fields[1:], " ")

	if cmd == cmdStartOrder && arg == "" {
		t.sess = conversation.Session{State: conversation.StateOrdering}
		return []string{msgOrderInstructions}, true
	}
	if t.sess.State.MidFlow() {
		return nil, false
	}

	switch cmd {
	case cmdQuery:
		return s.prompt(t, conversation.StateQueryingOrderID, msgAskQueryID, arg, (*Service).handleQuery), true
	case cmdDelete, cmdCancel:
		return s.prompt(t, conversation.StateWaitingDeleteID, msgAskDeleteID, arg, (*Service).handleDeleteID), true
	case cmdModify:
		return s.prompt(t, conversation.StateWaitingModifyID, msgAskModifyID, arg, (*Service).handleModifyID), true
	case cmdReorder:
		if arg == "" {
			t.sess = conversation.Session{State: conversation.StateConfirmReorder}
			return []string{msgReorderPrompt}, true
		}
	}
	return nil, false
}

// prompt asks for an order id, or resolves it right away when given inline.
func (s *Service) prompt(t *turn, next conversation.State, ask, inlineID string, resolve handler) []string {
	t.sess = conversation.Session{State: next}
	if inlineID == "" {
		return []string{ask}
	}
	t.text = inlineID
	return resolve(s, t)
}

func (s *Service) handleInit(t *turn) []string {
	t.sess = conversation.Session{}
	return []string{msgHelp}
}

func (s *Service) handleOrdering(t *turn) []string {
	d, err := s.parser.Parse(t.text, order.RequiredFields)
	if err != nil {
		return []string{parseFailure(err), msgOrderInstructions}
	}
	t.sess = conversation.Session{State: conversation.StateWaitingPayment, Draft: &d}
	return []string{draftSummary(d), msgPaymentPrompt}
}

func (s *Service) handleWaitingPayment(t *turn) []string {
	if t.sess.Draft == nil {
		t.sess = conversation.Session{}
		return []string{msgHelp}
	}
	method, ok := order.ClassifyPayment(t.text)
	if !ok {
		return []string{msgPaymentUnknown}
	}

	o := t.sess.Draft.Apply(order.Order{
		ID:        s.newID(),
		OwnerID:   t.owner,
		Payment:   method,
		Status:    order.StatusProcessing,
		CreatedAt: s.timestamp(),
	})
	if err := s.store.Append(t.ctx, o); err != nil {
		s.log.Error("append order failed", zap.String("owner_id", t.owner), zap.String("order_id", o.ID), zap.Error(err))
		return []string{msgAppendFailed}
	}

	t.sess = conversation.Session{}
	s.record(t.ctx, journal.KindPlaced, o)
	replies := []string{confirmation(o)}
	if method == order.PaymentBankTransfer {
		replies = append(replies, bankDetails(s.cfg.Bank))
	}
	return replies
}

func (s *Service) handleDeleteID(t *turn) []string {
	t.sess = conversation.Session{}
	loc, msg, ok := s.lookup(t)
	if !ok {
		return []string{msg}
	}
	if err := s.store.ArchiveAndDelete(t.ctx, loc.Position, loc.Row, s.timestamp()); err != nil {
		s.log.Error("archive order failed", zap.String("owner_id", t.owner), zap.String("order_id", loc.Order.ID), zap.Error(err))
		return []string{msgStoreError}
	}
	s.record(t.ctx, journal.KindCancelled, loc.Order)
	return []string{"🗑️ 已刪除以下訂單：\n" + orderDetails(loc.Order)}
}

func (s *Service) handleModifyID(t *turn) []string {
	t.sess = conversation.Session{}
	loc, msg, ok := s.lookup(t)
	if !ok {
		return []string{msg}
	}
	if loc.Order.Modified() {
		return []string{msgAlreadyModified}
	}
	t.sess = conversation.Session{
		State: conversation.StateModifying,
		Modify: &conversation.PendingModify{
			OrderID:  loc.Order.ID,
			Position: loc.Position,
			Original: loc.Order,
		},
	}
	return []string{
		"✏️ 請複製以下資料，修改後整段傳回（付款方式不可修改，且僅能修改一次）：",
		order.DraftOf(loc.Order).Labeled(),
	}
}

func (s *Service) handleModifying(t *turn) []string {
	pm := t.sess.Modify
	if pm == nil {
		t.sess = conversation.Session{}
		return []string{msgHelp}
	}
	d, err := s.parser.ParseLabeled(t.text, order.RequiredFields)
	if err != nil {
		return []string{parseFailure(err), msgModifyFormat}
	}

	updated := d.Apply(pm.Original)
	updated.ID = pm.OrderID
	updated.CreatedAt = s.timestamp() + order.ModifiedMarker
	updated.UnitPrice = ""
	updated.LineTotal = ""

	if err := s.store.UpdateRow(t.ctx, pm.Position, updated); err != nil {
		s.log.Error("update order failed", zap.String("owner_id", t.owner), zap.String("order_id", pm.OrderID), zap.Error(err))
		if pm.Retried {
			t.sess = conversation.Session{}
			return []string{msgStoreError}
		}
		retry := *pm
		retry.Retried = true
		t.sess.Modify = &retry
		return []string{msgUpdateRetry}
	}

	t.sess = conversation.Session{}
	s.record(t.ctx, journal.KindModified, updated)
	return []string{"✅ 訂單已修改：\n" + orderDetails(updated)}
}

func (s *Service) handleQuery(t *turn) []string {
	t.sess = conversation.Session{}
	loc, msg, ok := s.lookup(t)
	if !ok {
		return []string{msg}
	}
	return []string{querySummary(loc.Order)}
}

func (s *Service) handleConfirmReorder(t *turn) []string {
	switch strings.ToLower(order.Normalize(t.text)) {
	case "是", "yes", "y", "好":
		t.sess = conversation.Session{State: conversation.StateOrdering}
		return []string{msgOrderInstructions}
	}
	t.sess = conversation.Session{}
	return []string{msgGoodbye}
}

// lookup resolves t.text as an order id owned by t.owner. On a miss or a
// store failure it returns the reply to send instead.
func (s *Service) lookup(t *turn) (order.Located, string, bool) {
	loc, err := s.store.FindByIDAndOwner(t.ctx, order.Normalize(t.text), t.owner)
	switch {
	case errors.Is(err, order.ErrNotFound):
		return order.Located{}, msgNotFound, false
	case err != nil:
		s.log.Error("order lookup failed", zap.String("owner_id", t.owner), zap.Error(err))
		return order.Located{}, msgStoreError, false
	}
	return loc, "", true
}

func (s *Service) timestamp() string {
	return s.now().In(s.cfg.Location).Format(order.TimeLayout)
}

func (s *Service) record(ctx context.Context, kind journal.Kind, o order.Order) {
	err := s.journal.Record(ctx, journal.Event{
		OrderID: o.ID,
		OwnerID: o.OwnerID,
		Kind:    kind,
		Payload: map[string]string{
			"product":  o.Product,
			"variant":  o.Variant,
			"quantity": strconv.Itoa(o.Quantity),
			"payment":  string(o.Payment),
		},
		CreatedAt: s.now(),
	})
	if err != nil {
		s.log.Warn("journal record failed", zap.String("order_id", o.ID), zap.String("kind", string(kind)), zap.Error(err))
	}
}
