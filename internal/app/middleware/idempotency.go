package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"akwa/internal/app/commands"
)

// IdempotentCommand is implemented by commands that can be replayed by key.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer of the handler result type.
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays the stored result of a previously successful command
// with the same key. Failed commands are not stored so a retry re-evaluates
// them against current state. It sits outside Transaction: once the command
// has committed, a replay record that cannot be stored is logged and the
// result still returned.
func Idempotency(store IdempotencyStore, codec ResultCodec, logger *slog.Logger) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := cmd.Key() + ":" + idCmd.IdempotencyKey()
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				proto := idCmd.ResultPrototype()
				if proto == nil {
					return nil, errMissingPrototype
				}
				if err := codec.Decode(rec.Payload, proto); err != nil {
					return nil, err
				}
				return proto, nil
			}

			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return result, err
			}
			payload, err := codec.Encode(result)
			if err != nil {
				logger.WarnContext(ctx, "idempotency record not encoded", "command", cmd.Key(), "error", err)
				return result, nil
			}
			rec = IdempotencyRecord{Key: key, Payload: payload, OccurredAt: time.Now().UTC()}
			if err := store.Save(context.WithoutCancel(ctx), rec); err != nil {
				logger.WarnContext(ctx, "idempotency record not saved", "command", cmd.Key(), "error", err)
			}
			return result, nil
		})
	}
}
