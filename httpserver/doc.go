/*
Package httpserver serves the node's HTTP API and routes machine traffic.

Every request is first classified by its Host header (see the resolver
package). API hosts reach the Handler routes listed in the api package.
Machine hosts are forwarded to the machine's handle-http entry point with
the full request path, and hosts that are neither answer 421 Misdirected
Request so a wrong host can be told apart from a wrong path.

Failures are rendered as a Problem: a JSON body {"error": message} plus
optional fields, and optional headers such as Allow on 405. Guest panics
map to 400 with a "backtrace" field when one was captured; guest faults,
DNS failures and other host errors map to 500 with a generic message while
the cause is logged.

Server adds the operational endpoints /livez, /readyz, /drain and
/undrain, optional pprof under /debug, access logging and the metrics
listener.
*/
package httpserver
