// Package calendar adapts the Google Calendar v3 API to the normalized
// Event model used by the calendar tools.
//
// The Provider interface is the narrow contract the tool handlers depend on:
// list, get, insert, patch and delete, each authorized by a session id.
// Client implements it by listing every calendar the user has selected,
// hiding holiday and birthday calendars unless asked, expanding recurring
// events into single occurrences and merging the results by start time.
//
// Example usage:
//
//	factory := calendar.NewServiceFactory(tokens, googleConf.OAuthConfig(), calendar.DefaultRequestTimeout)
//	client := calendar.NewClient(factory, calendar.WithMetrics(metrics))
//
//	events, err := client.ListEvents(ctx, sessionID, calendar.ListOptions{})
//	if err != nil {
//	    return err
//	}
package calendar
