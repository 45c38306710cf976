// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

/*
Package tlsutil centralizes TLS settings for outbound connections:
TLS 1.2 minimum, AEAD cipher suites only.

The cluster package applies DefaultTLSConfig when dialing managed
Redis deployments with the tls flag set; the foundry CLI probes ops
endpoints through SecureHTTPClient.
*/
package tlsutil
