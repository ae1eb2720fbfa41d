// The [agenda] package is the client side of the contacts service: it keeps a
// local contact collection in step with the server, tracks the login session
// and exposes a loading indicator for whatever presents them.
//
// # Connection Engines
//
// There are 2 different connection engines, HTTP and WebSocket, you can use to
// reach the contacts service. Pass [WithTransport] to [New] to pick one; HTTP is
// the default. Both attach the persisted token as a bearer token, and both log
// the session out when the service answers 401.
//
// # Operations
//
// [Client.Contacts] returns the [contacts.Store]. Its Load, Create, Update and
// Remove methods block until the service answered and the loading indicator
// has been up for at least the configured minimum duration. They never return
// Go errors: each returns an [apierror.Outcome] whose Err, on failure, is one of
// the four canonical kinds (validation, server, network, unexpected).
//
// The collection is only changed after the service confirmed a mutation.
//
// # Sessions
//
// [Client.Session] returns the [session.State]. Credentials are persisted in the
// [credentials.Store] given with [WithCredentials], so a later process picks
// the session up again in [New].
//
// # Loading indicator
//
// [Client.Loading] returns the shared [loading.State]. It stays active while any
// operation is in flight, and Subscribe delivers every change.
package agenda
