// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package legacyfmt

import (
	"github.com/proxmox/proxmox-firewall/internal/addrport"
	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
	"github.com/proxmox/proxmox-firewall/internal/model"
)

// BuildAliasTable reads an `[ALIASES]` section into a model.AliasTable
// scoped to scope. Each line is "name: address" (or "name address").
func BuildAliasTable(sec Section, scope model.Scope) (*model.AliasTable, error) {
	table := model.NewAliasTable(scope)
	for _, ln := range sec.Lines {
		name, val, err := splitKeyValue(ln.Text)
		if err != nil {
			return nil, pferrors.WithProvenance(err, "", string(scope), ln.Num)
		}

		addr, err := addrport.ParseAddress(val)
		if err != nil {
			return nil, pferrors.WithProvenance(err, "", string(scope), ln.Num)
		}
		if err := table.Add(name, addr); err != nil {
			return nil, pferrors.WithProvenance(err, "", string(scope), ln.Num)
		}
	}
	return table, nil
}
