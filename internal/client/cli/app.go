// Package cli implements the interactive SnapVault command-line client.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/snapvault/internal/client/api"
	"github.com/dmitrijs2005/snapvault/internal/client/config"
)

type App struct {
	config *config.Config
	client *api.Client
	vault  *api.Vault
	reader *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	return &App{
		config: c,
		client: api.New(c.ServerEndpointAddr),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) isLoggedIn() bool {
	return a.vault != nil
}

func (a *App) status() string {
	if a.vault == nil {
		return "no vault"
	}
	return a.vault.Username
}

// Create claims a new vault: username, optional display name, PIN.
func (a *App) Create(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return err
	}
	displayName, err := GetSimpleText(a.reader, "Display name (optional)", os.Stdout)
	if err != nil {
		return err
	}
	pin, err := GetPin(os.Stdout)
	if err != nil {
		return err
	}

	session, err := a.client.CreateVault(ctx, username, displayName, pin, "")
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	a.vault = session.Vault
	printlnFn("Vault created.")
	return nil
}

// Login authenticates against an existing vault.
func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return err
	}
	pin, err := GetPin(os.Stdout)
	if err != nil {
		return err
	}

	session, err := a.client.Authenticate(ctx, username, pin)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	a.vault = session.Vault
	printlnFn("Welcome back.")
	return nil
}

// List refreshes the vault and prints its assets.
func (a *App) List(ctx context.Context) error {
	vault, err := a.client.GetVault(ctx, a.vault.ID)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	a.vault = vault

	if len(vault.Assets) == 0 {
		printlnFn("Vault is empty.")
		return nil
	}
	for _, asset := range vault.Assets {
		printlnFn(fmt.Sprintf("%s  %s (%d bytes)", asset.ID, asset.Name, asset.SizeBytes))
	}
	return nil
}

// AddFile uploads one local file into the vault.
func (a *App) AddFile(ctx context.Context) error {
	path, err := GetSimpleText(a.reader, "File path", os.Stdout)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	defer f.Close()

	vault, err := a.client.AddAsset(ctx, a.vault.ID, filepath.Base(path), f)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	a.vault = vault
	printlnFn("Uploaded.")
	return nil
}

// Remove deletes one asset by id.
func (a *App) Remove(ctx context.Context) error {
	assetID, err := GetSimpleText(a.reader, "Asset id", os.Stdout)
	if err != nil {
		return err
	}

	vault, err := a.client.RemoveAsset(ctx, a.vault.ID, assetID)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	a.vault = vault
	printlnFn("Removed.")
	return nil
}

// URL prints a short-lived download URL for one asset.
func (a *App) URL(ctx context.Context) error {
	assetID, err := GetSimpleText(a.reader, "Asset id", os.Stdout)
	if err != nil {
		return err
	}

	url, err := a.client.AssetURL(ctx, a.vault.ID, assetID)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	printlnFn(url)
	return nil
}

// Export downloads the whole vault as a zip into the working directory.
func (a *App) Export(ctx context.Context) error {
	res, err := a.client.Export(ctx, a.vault.ID, nil)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	if err := os.WriteFile(res.Filename, res.Archive, 0o600); err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	printlnFn("Saved", res.Filename)
	if len(res.FailedAssetIDs) > 0 {
		printlnFn("Warning: some assets failed:", res.FailedAssetIDs)
	}
	return nil
}

// ViewOnly toggles the vault's view-only switch.
func (a *App) ViewOnly(ctx context.Context) error {
	vault, err := a.client.ToggleViewOnly(ctx, a.vault.ID)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	a.vault = vault
	if vault.IsViewOnly {
		printlnFn("Vault is now view-only.")
	} else {
		printlnFn("Vault is writable again.")
	}
	return nil
}

// Panic triggers the emergency lock and drops the session.
func (a *App) Panic(ctx context.Context) error {
	if err := a.client.PanicLock(ctx, a.vault.ID); err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	a.vault = nil
	printlnFn("Vault locked.")
	return nil
}

// Logout drops the local session. The vault itself is untouched.
func (a *App) Logout(ctx context.Context) error {
	a.vault = nil
	a.client.SetToken("")
	printlnFn("Logged out.")
	return nil
}
