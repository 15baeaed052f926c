package exceptions

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"lotengine/src/model"
)

const (
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

// Recorder persists captured exceptions. repository.ExceptionRepository implements it.
type Recorder interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// Capture records a system exception, logs it locally, and persists it when
// a recorder is configured. A nil err is a no-op.
func Capture(
	ctx context.Context,
	repo Recorder,
	service string,
	module string,
	method string,
	level string,
	err error,
	contextData map[string]interface{},
) {
	if err == nil {
		return
	}

	var ctxJSON datatypes.JSON
	if contextData != nil {
		if b, e := json.Marshal(contextData); e == nil {
			ctxJSON = b
		}
	}

	exc := &model.Exception{
		Service:   service,
		Module:    module,
		Method:    method,
		Message:   err.Error(),
		Stack:     string(debug.Stack()),
		Level:     level,
		Context:   ctxJSON,
		CreatedAt: time.Now(),
	}

	logger.WithFields(map[string]interface{}{
		"service": service,
		"module":  module,
		"method":  method,
		"level":   level,
	}).WithError(err).Error("System exception captured")

	if repo == nil {
		return
	}
	// the cycle context may already be cancelled; the audit row should still land
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if e := repo.Create(persistCtx, exc); e != nil {
		logger.WithError(e).Error("Failed to persist exception")
	}
}
