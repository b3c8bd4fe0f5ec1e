package intent

import "context"

// Asker puts a question to the user. Returning an error is treated as the
// user declining to answer.
type Asker interface {
	Ask(ctx context.Context, q Question) (string, error)
}

// AskerFunc adapts a function to Asker.
type AskerFunc func(ctx context.Context, q Question) (string, error)

func (f AskerFunc) Ask(ctx context.Context, q Question) (string, error) { return f(ctx, q) }

// Run drives detection to completion. With a nil asker any pending question
// is declined, so the result falls back to the default category. Run always
// terminates within MaxQuestions asks.
func (d *Detector) Run(ctx context.Context, req Request, asker Asker) (Result, error) {
	st, err := d.Begin(req)
	if err != nil {
		return Result{}, err
	}
	for st.Status == Pending {
		if asker == nil || ctx.Err() != nil {
			st = d.Step(st, Answer{Declined: true})
			continue
		}
		text, err := asker.Ask(ctx, *st.Question)
		if err != nil {
			st = d.Step(st, Answer{Declined: true})
			continue
		}
		st = d.Step(st, Answer{Text: text})
	}
	return *st.Result, nil
}
