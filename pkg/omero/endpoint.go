// Package omero holds helpers for the Omero image repository REST endpoint
// the file picker is paired with.
package omero

import "strings"

const webGatewaySegment = "/webgateway"

// WebGatewayServer returns the server part of an Omero REST endpoint, that is
// everything before the "/webgateway" path segment. It returns "" when the
// endpoint does not contain the segment.
func WebGatewayServer(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	idx := strings.Index(endpoint, webGatewaySegment)
	if idx < 0 {
		return ""
	}
	return endpoint[:idx]
}
