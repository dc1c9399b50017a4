// Package routing forwards opaque route requests to an external routing
// engine.
//
// Requests and responses are uninterpreted text; otb never parses them.
// An Engine owns a single Transport that is created lazily on the first
// request and reused for the life of the process. Requests are serialized
// through the Engine's mutex because the engine handle is not assumed to be
// safe for concurrent use.
package routing
