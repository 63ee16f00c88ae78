package auth

import "github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"

func domainCode(err error) string {
	if err == nil {
		return ""
	}
	if code := domain.CodeOf(err); code != "" {
		return code
	}
	return "non_domain_error"
}
