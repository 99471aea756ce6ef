// Package notice defines the failure taxonomy shared by every deployctl
// component and the user-facing notices those failures degrade into.
//
// Components return plain Go errors wrapped as *Error with a Kind. The fleet
// aggregator and the dispatcher convert them to Notice values instead of
// propagating them, so no read or write action can abort the caller:
//
//	if err := svc.Restart(ctx, target); err != nil {
//	    notices.AddError(err)
//	}
//
// Kinds are stable strings (configuration, client_construction, api, action,
// export_io, invalid_request, forbidden, internal, no_match, status) meant
// for programmatic handling.
package notice
