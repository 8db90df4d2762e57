package payment

import (
	"context"
	"fmt"
	"time"
)

// StaticSTKPusher fakes the mobile payment processor for development
// setups that run without Daraja credentials. The callback then has to
// be driven by hand or by tests.
type StaticSTKPusher struct{}

func (StaticSTKPusher) Push(_ context.Context, req STKPushRequest) (string, error) {
	return fmt.Sprintf("ws_CO_%d_%s", time.Now().UnixMilli(), req.Reference), nil
}

var _ STKPusher = (*StaticSTKPusher)(nil)
