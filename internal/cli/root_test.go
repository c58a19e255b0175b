package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCommandRegistersEverySubcommand(t *testing.T) {
	root := NewRootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}

	assert.ElementsMatch(t, []string{
		"createwallet",
		"listaddresses",
		"createblockchain",
		"getbalance",
		"send",
		"printchain",
		"reindex",
		"startnode",
		"startminer",
	}, names)
}

func TestPrintErrPrefixesTheMessage(t *testing.T) {
	err := printErr(assert.AnError)
	assert.Contains(t, err.Error(), "Error:")
	assert.Contains(t, err.Error(), assert.AnError.Error())
}
