package session

import "strings"

const defaultOrganizationName = "Organization"

// OrganizationName derives a display name for a new session: the first host
// label of the instance URL, else the first label of the username's domain.
func OrganizationName(instanceURL, username string) string {
	host := instanceURL
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(strings.ToLower(host), scheme) {
			host = host[len(scheme):]
			break
		}
	}
	if label, _, _ := strings.Cut(host, "."); label != "" {
		return label
	}

	if _, domain, ok := strings.Cut(username, "@"); ok {
		if label, _, _ := strings.Cut(domain, "."); label != "" {
			return label
		}
	}

	return defaultOrganizationName
}
