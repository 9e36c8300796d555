package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/langid/internal/model"
)

// Invoke calls p.Detect and converts any contract violation into an
// error-status Outcome: panics are recovered, a missing provider name is
// backfilled, and the record is normalized.
func Invoke(ctx context.Context, p Provider, audioPath string) (out model.Outcome) {
	name := describe(p)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = contractViolation(name, time.Since(start), r)
		}
	}()

	out = p.Detect(ctx, audioPath)
	return settle(out, name, time.Since(start))
}

// InvokeText is Invoke for text providers.
func InvokeText(ctx context.Context, tp TextProvider, text string) (out model.Outcome) {
	name := describeText(tp)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = contractViolation(name, time.Since(start), r)
		}
	}()

	out = tp.DetectText(ctx, text)
	return settle(out, name, time.Since(start))
}

func settle(out model.Outcome, name string, elapsed time.Duration) model.Outcome {
	if out.Provider == "" {
		out.Provider = name
	}
	if out.Status == "" {
		out.Status = model.StatusError
		msg := "provider returned an empty outcome"
		out.Error = &msg
	}
	if out.TimeTaken <= 0 {
		out.TimeTaken = elapsed.Seconds()
	}
	return out.Normalize()
}

func contractViolation(name string, elapsed time.Duration, r any) model.Outcome {
	zap.L().Error("provider: panic during detection",
		zap.String("provider", name),
		zap.Any("panic", r),
	)
	return model.Failure(name, elapsed, fmt.Errorf("provider panic: %v", r))
}

// SafeDescriptor returns p's descriptor, or a zero descriptor when p is nil
// or panics while describing itself.
func SafeDescriptor(p Provider) (d Descriptor) {
	defer func() {
		if recover() != nil {
			d = Descriptor{}
		}
	}()
	if p == nil {
		return Descriptor{}
	}
	return p.Descriptor()
}

func describe(p Provider) string {
	if name := SafeDescriptor(p).Name; name != "" {
		return name
	}
	return model.UnknownProvider
}

// SafeTextDescriptor is SafeDescriptor for text providers.
func SafeTextDescriptor(tp TextProvider) (d Descriptor) {
	defer func() {
		if recover() != nil {
			d = Descriptor{}
		}
	}()
	if tp == nil {
		return Descriptor{}
	}
	return tp.Descriptor()
}

func describeText(tp TextProvider) string {
	if name := SafeTextDescriptor(tp).Name; name != "" {
		return name
	}
	return model.UnknownProvider
}
