package app

import (
	"bytes"
	"errors"
	"fmt"

	"edusphere/internal/catalog"
	"edusphere/internal/encryption"
	"edusphere/internal/portal"
)

var (
	// ErrNoVaults is returned by publish operations when no vault is configured.
	ErrNoVaults = errors.New("no vaults configured")

	// ErrVaultAhead is returned by Publish when a vault already holds a newer catalog.
	ErrVaultAhead = errors.New("vault holds a newer catalog")
)

// PublishedName returns the document name catalogs are published under.
func (a *PortalApp) PublishedName() string {
	return catalog.DocumentName + a.encryptor.Extension()
}

// Publish encodes the current snapshot, seals it with the configured
// encryptor and ships it to every vault. Vaults are written in config order;
// the first failure stops the run and the publications made so far are returned
// with the error.
func (a *PortalApp) Publish() ([]portal.Publication, error) {
	if len(a.vaults) == 0 {
		return nil, ErrNoVaults
	}
	if !a.encryptor.IsConfigured() {
		return nil, encryption.ErrKeysMissing
	}

	snap := a.repo.Snapshot()
	var plain bytes.Buffer
	if err := catalog.Encode(&plain, snap); err != nil {
		return nil, err
	}
	var sealed bytes.Buffer
	if err := a.encryptor.Encrypt(&plain, &sealed); err != nil {
		return nil, fmt.Errorf("encrypting catalog: %w", err)
	}

	name := a.PublishedName()
	size := int64(sealed.Len())

	var published []portal.Publication
	for _, v := range a.vaults {
		if err := v.ValidateSetup(); err != nil {
			return published, fmt.Errorf("vault %s: %w", v.Name(), err)
		}

		remote, err := v.GetCatalogVersion(name)
		if err != nil {
			return published, fmt.Errorf("checking version in vault %s: %w", v.Name(), err)
		}
		if remote > snap.Version {
			return published, fmt.Errorf("%w: vault %s has version %d, local is %d", ErrVaultAhead, v.Name(), remote, snap.Version)
		}

		if err := v.PutCatalog(name, bytes.NewReader(sealed.Bytes()), size, snap.Version); err != nil {
			return published, fmt.Errorf("publishing to vault %s: %w", v.Name(), err)
		}

		p := portal.Publication{
			Vault:       v.Name(),
			Name:        name,
			Version:     snap.Version,
			Size:        size,
			PublishedAt: a.clock.Now().UTC(),
		}
		if err := a.publications.RecordPublication(p); err != nil {
			a.logger.Warn("publication not recorded", "vault", v.Name(), "error", err)
		}
		a.logger.Info("catalog published", "vault", v.Name(), "name", name, "version", snap.Version, "size", size)
		published = append(published, p)
	}
	return published, nil
}

// Publications returns the publish history, newest first.
func (a *PortalApp) Publications() ([]portal.Publication, error) {
	return a.publications.ListPublications()
}

// FetchPublished reads the catalog published to vaultName back, unlocking
// the private key with passphrase. An empty vaultName selects the first vault.
func (a *PortalApp) FetchPublished(vaultName, passphrase string) (portal.Catalog, error) {
	v, err := a.findVault(vaultName)
	if err != nil {
		return portal.Catalog{}, err
	}

	var sealed bytes.Buffer
	if err := v.GetCatalog(a.PublishedName(), &sealed); err != nil {
		return portal.Catalog{}, fmt.Errorf("fetching from vault %s: %w", v.Name(), err)
	}

	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return portal.Catalog{}, fmt.Errorf("unlocking private key: %w", err)
	}
	var plain bytes.Buffer
	if err := dc.Decrypt(&sealed, &plain); err != nil {
		return portal.Catalog{}, fmt.Errorf("decrypting catalog: %w", err)
	}
	return catalog.Decode(&plain)
}

// SetupEncryption generates the key pair used to seal published catalogs.
func (a *PortalApp) SetupEncryption(passphrase string) error {
	if a.encryptor.IsConfigured() {
		return fmt.Errorf("encryption keys already exist")
	}
	if err := a.encryptor.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up encryption: %w", err)
	}
	a.logger.Info("encryption keys created")
	return nil
}

func (a *PortalApp) findVault(name string) (portal.Vault, error) {
	if len(a.vaults) == 0 {
		return nil, ErrNoVaults
	}
	if name == "" {
		return a.vaults[0], nil
	}
	for _, v := range a.vaults {
		if v.Name() == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("vault %s: %w", name, portal.ErrNotFound)
}
