// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package signal

// AuthorizationContext is the set of authorization subjects attached to a
// session. It is extracted from the authenticated connection by the security
// layer and treated as opaque here.
type AuthorizationContext struct {
	// SubjectIDs are the granted subject identifiers, in declaration order.
	SubjectIDs []string `json:"subject_ids"`
}

// NewAuthorizationContext creates an authorization context from subject ids.
func NewAuthorizationContext(subjectIDs ...string) AuthorizationContext {
	return AuthorizationContext{SubjectIDs: subjectIDs}
}

// IsAuthorized reports whether a signal with the given granted and revoked
// read subjects may be delivered to this context: at least one granted
// subject must match and no revoked subject may match.
func (c AuthorizationContext) IsAuthorized(granted, revoked []string) bool {
	for _, subject := range c.SubjectIDs {
		if contains(revoked, subject) {
			return false
		}
	}
	for _, subject := range c.SubjectIDs {
		if contains(granted, subject) {
			return true
		}
	}
	return false
}

// Equal reports whether both contexts hold the same subjects in the same
// order. A reordered context counts as changed, forcing a reconnect.
func (c AuthorizationContext) Equal(other AuthorizationContext) bool {
	if len(c.SubjectIDs) != len(other.SubjectIDs) {
		return false
	}
	for i, subject := range c.SubjectIDs {
		if other.SubjectIDs[i] != subject {
			return false
		}
	}
	return true
}

// Empty reports whether the context holds no subjects.
func (c AuthorizationContext) Empty() bool {
	return len(c.SubjectIDs) == 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
