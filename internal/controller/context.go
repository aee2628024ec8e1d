package controller

import "context"

type contextKey int

const (
	connIDCtxKey contextKey = iota
)

func (c controller) getConnIDFromCtx(ctx context.Context) string {
	connID, ok := ctx.Value(connIDCtxKey).(string)
	if !ok {
		return ""
	}

	return connID
}
