package reminder

import "fmt"

// Store persists the reminder set and the settings. A store that has
// never been written reads as an empty set and zero Settings.
type Store interface {
	Get() (Set, error)
	Set(Set) error
	Settings() (Settings, error)
	SaveSettings(Settings) error
	Close() error
}

// Save, Delete and SetEnabled read, change and rewrite the whole set. They
// are not atomic against other writers of the same store; the daemon runs
// them through scheduler.Scheduler.Update.

// Save writes r. An empty originalName creates a new reminder; a
// different originalName renames, removing the old key. It returns the
// set as persisted.
func Save(st Store, r Reminder, originalName string) (Set, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	set, err := st.Get()
	if err != nil {
		return nil, fmt.Errorf("read reminders: %w", err)
	}
	switch {
	case originalName == "":
		if _, ok := set[r.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, r.Name)
		}
	case originalName != r.Name:
		if _, ok := set[originalName]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, originalName)
		}
		if _, ok := set[r.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, r.Name)
		}
		delete(set, originalName)
	}
	set[r.Name] = r
	if err := st.Set(set); err != nil {
		return nil, fmt.Errorf("write reminders: %w", err)
	}
	return set, nil
}

// Delete removes name and returns the remaining set.
func Delete(st Store, name string) (Set, error) {
	set, err := st.Get()
	if err != nil {
		return nil, fmt.Errorf("read reminders: %w", err)
	}
	if _, ok := set[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(set, name)
	if err := st.Set(set); err != nil {
		return nil, fmt.Errorf("write reminders: %w", err)
	}
	return set, nil
}

// SetEnabled flips the enabled flag of name.
func SetEnabled(st Store, name string, enabled bool) (Set, error) {
	set, err := st.Get()
	if err != nil {
		return nil, fmt.Errorf("read reminders: %w", err)
	}
	r, ok := set[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	r.Enabled = enabled
	set[name] = r
	if err := st.Set(set); err != nil {
		return nil, fmt.Errorf("write reminders: %w", err)
	}
	return set, nil
}
