package api

import "github.com/okian/rsvp/pkg/logger"

const defaultImportMaxBytes int64 = 5 << 20

// Option configures a Server.
type Option func(*Server)

// WithAdminKey sets the bearer token accepted by admin routes. An empty key
// rejects every admin request.
func WithAdminKey(key string) Option {
	return func(s *Server) {
		s.adminKey = key
	}
}

// WithContactEmail adds a contact address to guest-list rejections.
func WithContactEmail(email string) Option {
	return func(s *Server) {
		s.contactEmail = email
	}
}

// WithTrustProxyHeaders keys rate limiting on the first X-Forwarded-For hop.
func WithTrustProxyHeaders(trust bool) Option {
	return func(s *Server) {
		s.trustProxyHeaders = trust
	}
}

// WithImportMaxBytes caps the CSV upload size.
func WithImportMaxBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.importMaxBytes = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
