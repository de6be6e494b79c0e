// Package executor runs one chat turn: it asks the language model what to
// do, dispatches the calendar tools it requests and decides when to hand
// control back to the user.
//
// A turn ends in one of four ways:
//
//   - the model answers without tool calls; its text is the reply
//   - a tool result asks the user for confirmation, a notify choice or an
//     index; a summary call turns the accumulated actions into the reply
//   - every tool result of a round is a completed list, detail or mutation;
//     a summary call produces the reply as well
//   - MaxIterations rounds pass without reaching either state
//
// The executor does not serialize turns of the same session. Callers hold
// the session's lock around Run.
package executor
