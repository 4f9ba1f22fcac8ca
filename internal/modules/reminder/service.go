// README: Daily pickup reminder; pushes one message per order due today.
package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yen1506/linebot-coffee/internal/modules/order"
	"github.com/yen1506/linebot-coffee/internal/sheet"
)

type Pusher interface {
	Push(ctx context.Context, to, text string) error
}

type Service struct {
	live   sheet.Table
	pusher Pusher
	loc    *time.Location
	log    *zap.Logger
	now    func() time.Time
}

func NewService(live sheet.Table, pusher Pusher, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{live: live, pusher: pusher, loc: loc, log: log, now: time.Now}
}

// Run sends the reminders for today and returns how many pushes succeeded.
// Read failures are logged and reported as zero sends.
func (s *Service) Run(ctx context.Context) int {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("reminder panic", zap.Any("panic", r))
		}
	}()

	rows, err := s.live.Rows(ctx)
	if err != nil {
		s.log.Error("reminder read failed", zap.Error(err))
		return 0
	}
	if len(rows) <= 1 {
		return 0
	}
	idx := sheet.ColumnIndex(rows[0])
	_, okO := idx[order.Columns[order.ColOwner]]
	_, okD := idx[order.Columns[order.ColPickupDate]]
	if !okO || !okD {
		s.log.Warn("reminder skipped: order table lacks owner or pickup date column")
		return 0
	}
	today := s.now().In(s.loc).Format(order.DateLayout)

	sent := 0
	for _, r := range rows[1:] {
		o := order.FromNamedRow(idx, r)
		if o.OwnerID == "" || order.NormalizeDate(o.PickupDate) != today {
			continue
		}
		if err := s.pusher.Push(ctx, o.OwnerID, message(o)); err != nil {
			s.log.Warn("reminder push failed", zap.String("owner_id", o.OwnerID), zap.String("order_id", o.ID), zap.Error(err))
			continue
		}
		sent++
	}
	s.log.Info("reminders sent", zap.String("date", today), zap.Int("sent", sent))
	return sent
}

func message(o order.Order) string {
	return fmt.Sprintf("☕ 提醒您，今天是訂單 %s 的取貨日！\n%s %s x %d", o.ID, o.Product, o.Variant, o.Quantity)
}
