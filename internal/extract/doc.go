// Package extract recognizes HTTP GET requests for streamed assets inside
// captured frames and pulls out the path, user agent and accept header needed
// to replay them.
//
// Recognition is deliberately loose: the decoded TCP payload only has to
// contain "GET" and the target host anywhere in its text. Header values are
// the second whitespace token of the first line mentioning the header name.
package extract
