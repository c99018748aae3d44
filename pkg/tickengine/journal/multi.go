package journal

import "errors"

// Multi returns a Store that writes every record to each store in order.
// A failing store does not prevent writes to the others; the errors are
// joined.
func Multi(stores ...Store) Store {
	return multiStore(stores)
}

type multiStore []Store

func (m multiStore) WriteMetrics(rec MetricsRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteMetrics(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiStore) WriteAudit(rec AuditRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteAudit(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiStore) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecentAudit reads from the first store that supports reading.
func (m multiStore) RecentAudit(limit int) ([]AuditRecord, error) {
	for _, s := range m {
		if r, ok := s.(AuditReader); ok {
			return r.RecentAudit(limit)
		}
	}
	return nil, nil
}
