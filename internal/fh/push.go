package fh

import (
	"fmt"
	"sort"

	"fh-go/internal/store"
)

// PushResult lists the snapshot files sent to a vault.
type PushResult struct {
	Uploaded []string
	Skipped  int
}

// Push copies snapshot files the vault does not have yet, oldest first.
// Every snapshot is verified before upload, so a corrupted file is never
// replicated.
func (s *Service) Push(v Vault) (*PushResult, error) {
	if err := v.ValidateSetup(); err != nil {
		return nil, fmt.Errorf("vault not usable: %w", err)
	}

	st, release, err := s.openStore(false)
	if err != nil {
		return nil, err
	}
	defer release()

	remote, err := v.List()
	if err != nil {
		return nil, fmt.Errorf("listing vault: %w", err)
	}
	sort.Strings(remote)
	have := func(name string) bool {
		i := sort.SearchStrings(remote, name)
		return i < len(remote) && remote[i] == name
	}

	result := &PushResult{}
	refs := st.List()
	for i := len(refs) - 1; i >= 0; i-- {
		ref := refs[i]
		name := ref.Filename()
		if have(name) {
			result.Skipped++
			continue
		}
		if _, err := st.Load(ref); err != nil {
			return result, fmt.Errorf("refusing to push %s: %w", name, err)
		}
		if err := upload(st, ref, v); err != nil {
			return result, err
		}
		result.Uploaded = append(result.Uploaded, name)
		s.logger.Info("snapshot pushed", "snapshot", name)
	}
	return result, nil
}

func upload(st *store.Store, ref store.Reference, v Vault) error {
	f, err := st.OpenRaw(ref)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", ref.Filename(), err)
	}
	if err := v.Put(ref.Filename(), f, info.Size()); err != nil {
		return fmt.Errorf("uploading %s: %w", ref.Filename(), err)
	}
	return nil
}
