// Package tools defines the functions the voice model may call and turns
// their loosely typed arguments into lead and summary updates.
//
// The three tools are fixed:
//
//   - capture_lead records contact details as they come up.
//   - generate_summary records topics, questions, follow-ups and sentiment.
//   - schedule_callback records a callback request as a note and preferred time.
//
// Arguments come from a language model and are not trusted. Parse repairs
// malformed JSON where it can and reads each field with a type check, so a
// payload with one bad field still yields the good ones:
//
//	result := tools.Dispatch(tools.Call{Name: "capture_lead", Arguments: `{"name":"Dana"}`})
//	switch r := result.(type) {
//	case *tools.LeadCaptured:
//		current.Merge(r.Lead)
//	case *tools.Failed:
//		slog.Warn("bad tool call", "error", r.Err)
//	}
package tools
