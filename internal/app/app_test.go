package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yanizio/adeptbill/components/auth"
	"github.com/yanizio/adeptbill/components/billing"
	"github.com/yanizio/adeptbill/components/pages"
	"github.com/yanizio/adeptbill/internal/component"
)

func TestDeclarers_OnlyAssetComponents(t *testing.T) {
	apps := component.NewRegistry(auth.New(nil, nil, nil), billing.New(nil), pages.New(nil))

	var names []string
	for _, d := range Declarers(apps) {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"billing", "pages"}, names)
}

func TestAbs(t *testing.T) {
	root := filepath.FromSlash("/srv/adeptbill")
	assert.Equal(t, filepath.Join(root, "static"), abs(root, "static"))
	assert.Equal(t, "/var/www", abs(root, "/var/www"))
	assert.Equal(t, "", abs(root, ""))
}
