package domain

// MemberID identifies a member in the source-of-truth membership system.
// It is opaque to us: upstream uses numeric ids but we never do arithmetic on them.
type MemberID string

// StaffSubject identifies the staff user acting through the API. It is supplied by the
// session layer in front of this service.
type StaffSubject string

// StaffID is an internal identifier for a staff directory record.
type StaffID string

// CardID identifies a training card (membership instance).
type CardID string
