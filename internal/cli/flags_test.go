package cli

import (
	"testing"

	"github.com/fleetops/fleetctl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetRunFlags() {
	runNodesFlag = ""
	runTagFlag = ""
	runAllFlag = false
}

func TestSelectNodes_CommaList(t *testing.T) {
	defer resetRunFlags()
	runNodesFlag = "web1, web2,db1"

	nodes, err := selectNodes(config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"web1", "web2", "db1"}, nodes)
}

func TestSelectNodes_All(t *testing.T) {
	defer resetRunFlags()
	runAllFlag = true

	cfg := config.DefaultConfig()
	cfg.Nodes = map[string]config.Node{
		"web1": {Address: "10.0.0.1"},
		"web2": {Address: "10.0.0.2"},
	}

	nodes, err := selectNodes(cfg)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"web1", "web2"}, nodes)
}

func TestSelectNodes_AllWithEmptyRegistry(t *testing.T) {
	defer resetRunFlags()
	runAllFlag = true

	_, err := selectNodes(config.DefaultConfig())
	assert.Error(t, err)
}

func TestSelectNodes_ByTag(t *testing.T) {
	defer resetRunFlags()
	runTagFlag = "prod"

	cfg := config.DefaultConfig()
	cfg.Nodes = map[string]config.Node{
		"web1": {Address: "10.0.0.1", Tags: []string{"prod", "web"}},
		"web2": {Address: "10.0.0.2", Tags: []string{"staging"}},
		"db1":  {Address: "10.0.0.3", Tags: []string{"prod"}},
	}

	nodes, err := selectNodes(cfg)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"web1", "db1"}, nodes)

	runTagFlag = "gpu"
	_, err = selectNodes(cfg)
	assert.Error(t, err)
}

func TestSelectNodes_Conflict(t *testing.T) {
	defer resetRunFlags()
	runAllFlag = true
	runNodesFlag = "web1"

	_, err := selectNodes(config.DefaultConfig())
	assert.Error(t, err)
}

func TestSelectNodes_NoTargets(t *testing.T) {
	defer resetRunFlags()

	_, err := selectNodes(config.DefaultConfig())
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	start, end, err := parseRange("100", "120")
	require.NoError(t, err)
	assert.Equal(t, 100, start)
	assert.Equal(t, 120, end)

	_, _, err = parseRange("vm-100", "120")
	assert.Error(t, err)

	_, _, err = parseRange("100", "all")
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := parseID("101")
	require.NoError(t, err)
	assert.Equal(t, 101, id)

	_, err = parseID("ct101")
	assert.Error(t, err)
}

func TestCapExit(t *testing.T) {
	assert.Equal(t, 0, capExit(0))
	assert.Equal(t, 7, capExit(7))
	assert.Equal(t, 125, capExit(125))
	assert.Equal(t, 125, capExit(4000))
}
