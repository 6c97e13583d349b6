package closebook

// EmailEvidence records the email register rows that support the close in
// the audit ledger. It emits no exceptions of its own; its value is the
// evidence linkage from deterministic conclusions back to correspondence.
func EmailEvidence(s *Snapshot, p Policy) (*EngineResult, error) {
	res := &EngineResult{Fn: FnEmail, SourceKind: "emails"}
	for _, entity := range s.Entities() {
		for _, mail := range s.Entity(entity).Emails {
			res.RowIDs = append(res.RowIDs, mail.EmailID)
		}
	}
	return res, nil
}
