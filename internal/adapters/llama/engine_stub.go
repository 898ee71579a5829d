//go:build !llama

package llama

import "context"

// stubEngine keeps default builds cgo-free; it refuses every prediction.
type stubEngine struct{}

func newEngine(Config) engine { return stubEngine{} }

func (stubEngine) Predict(ctx context.Context, _, _ string, _ Options, _ func(string) bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", ErrUnavailable
}

func (stubEngine) Close() error { return nil }
