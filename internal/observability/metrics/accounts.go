package metrics

import (
	"time"

	obserrors "github.com/target/mmk-accounts/internal/observability/errors"
	"github.com/target/mmk-accounts/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess   = "success"
	ResultError     = "error"
	ResultRejected  = "rejected"
	ResultDuplicate = "duplicate"
)

// Flow names, emitted as accounts.<flow>.
const (
	FlowRegister = "register"
	FlowLogin    = "login"
	FlowRecover  = "recover"
	FlowConfirm  = "confirm"
	FlowEdit     = "edit"
	FlowMail     = "mail"
)

// AccountMetric captures one account flow outcome.
type AccountMetric struct {
	Flow     string
	Result   string
	Duration time.Duration
	Err      error
	Tags     map[string]string
}

// EmitAccountEvent emits the counter (and timing when known) for an account flow.
func EmitAccountEvent(sink statsd.Sink, in AccountMetric) {
	if sink == nil || in.Flow == "" {
		return
	}

	tags := CloneTags(in.Tags)
	if tags == nil {
		tags = make(map[string]string, 2)
	}
	tags["result"] = in.Result
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("accounts."+in.Flow, 1, tags)
	if in.Duration > 0 {
		sink.Timing("accounts."+in.Flow+".duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
