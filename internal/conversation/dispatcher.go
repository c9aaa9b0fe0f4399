package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xelth-com/orderbot/internal/render"
)

// DefaultWorkers bounds concurrent upstream lookups
const DefaultWorkers = 8

const dropSendTimeout = 5 * time.Second

// Message is one outbound chat message
type Message struct {
	Text     string
	Keyboard Keyboard
}

// Replier delivers messages to one chat session
type Replier interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher runs lookups off the update loop on a bounded pool. Every
// dispatched job ends with at least one message, the last one carrying the
// continue keyboard.
type Dispatcher struct {
	lookups Lookups
	sem     *semaphore.Weighted
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given worker count
func NewDispatcher(lookups Lookups, workers int, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		lookups: lookups,
		sem:     semaphore.NewWeighted(int64(workers)),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Dispatch schedules the lookup described by eff and returns immediately.
// Reply effects are not accepted here.
func (d *Dispatcher) Dispatch(session string, eff Effect, r Replier) {
	if eff.Kind != EffectTrack && eff.Kind != EffectOrders {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.sem.Acquire(d.ctx, 1); err != nil {
			d.drop(session, eff, r, err)
			return
		}
		defer d.sem.Release(1)
		d.run(session, eff, r)
	}()
}

func (d *Dispatcher) run(session string, eff Effect, r Replier) {
	requestID := uuid.NewString()
	log := d.logger.With(
		zap.String("request_id", requestID),
		zap.String("session", session),
		zap.String("kind", effectName(eff.Kind)),
	)
	start := time.Now()

	out := d.execute(eff, log)

	for i, text := range out.Messages {
		msg := Message{Text: text}
		if i == len(out.Messages)-1 {
			msg.Keyboard = KeyboardContinue
		}
		if err := r.Send(d.ctx, msg); err != nil {
			log.Warn("Failed to send reply", zap.Int("part", i+1), zap.Error(err))
		}
	}

	fieldsOut := []zap.Field{
		zap.Duration("duration", time.Since(start)),
		zap.Int("messages", len(out.Messages)),
		zap.Stringer("outcome", out.Kind()),
	}
	if out.Err != nil {
		log.Info("Lookup finished with failure", append(fieldsOut, zap.Error(out.Err))...)
		return
	}
	log.Info("Lookup finished", fieldsOut...)
}

// drop tells the user a lookup that never started will not run. The
// dispatcher context is already done, so the send gets its own deadline.
func (d *Dispatcher) drop(session string, eff Effect, r Replier, cause error) {
	d.logger.Warn("Lookup dropped, dispatcher stopped",
		zap.String("session", session),
		zap.String("kind", effectName(eff.Kind)),
		zap.Error(cause),
	)
	ctx, cancel := context.WithTimeout(context.Background(), dropSendTimeout)
	defer cancel()
	if err := r.Send(ctx, Message{Text: render.Restarting, Keyboard: KeyboardContinue}); err != nil {
		d.logger.Warn("Failed to send reply", zap.String("session", session), zap.Error(err))
	}
}

// execute converts a panic inside a lookup into a failure outcome
func (d *Dispatcher) execute(eff Effect, log *zap.Logger) (out Outcome) {
	esc := d.lookups.escaper()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Lookup panicked", zap.Any("panic", rec), zap.Stack("stack"))
			detail := fmt.Sprint(rec)
			text := render.LookupError(detail, esc)
			if eff.Kind == EffectTrack {
				text = render.TrackingError(detail, esc)
			}
			out = Outcome{
				Messages: []string{text},
				Err:      &Error{Kind: TransportFailure, Detail: detail},
			}
		}
	}()

	switch eff.Kind {
	case EffectTrack:
		log.Debug("Tracking lookup", zap.String("provider", eff.Provider), zap.String("code", eff.Code))
		return d.lookups.Track(d.ctx, eff.Provider, eff.Code)
	default:
		log.Debug("Order lookup", zap.Int("cookies", len(eff.Cookies)))
		return d.lookups.LookupOrders(d.ctx, eff.Cookies)
	}
}

// Wait blocks until every dispatched job has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close cancels in-flight lookups and waits for them to return
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

func effectName(k EffectKind) string {
	switch k {
	case EffectTrack:
		return "tracking"
	case EffectOrders:
		return "orders"
	default:
		return "reply"
	}
}
