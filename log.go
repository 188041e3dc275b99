package symkern

import (
	"go.uber.org/zap"
)

// exprField logs an expression by its FullForm text.
func exprField(key string, e Expr) zap.Field {
	if e == nil {
		return zap.Skip()
	}
	return zap.Stringer(key, e)
}

// sessionLogger tags base with the session id. A nil base logs nothing.
func sessionLogger(base *zap.Logger, id string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.Named("symkern").With(zap.String("session", id))
}
