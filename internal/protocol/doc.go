// Package protocol converts the protected parts of an HTTP exchange to and
// from their wire form.
//
// Both ends of a pair apply the same steps in the same order: the route
// (path and query) travels as one base64url path segment, selected headers
// travel as an encoded JSON object in the x-mte-relay-eh header, and the
// body travels as the raw engine token. Every engine call goes through the
// handle the caller passes in; callers own any locking.
package protocol
