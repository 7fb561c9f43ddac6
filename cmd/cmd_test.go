package cmd

import (
	"testing"

	"giveaway/models"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogging(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)
	defer log.SetFormatter(&log.TextFormatter{})

	require.NoError(t, configureLogging("debug", "json"))
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	require.NoError(t, configureLogging("warn", "text"))
	assert.Equal(t, log.WarnLevel, log.GetLevel())

	assert.Error(t, configureLogging("loud", "text"))
	assert.Error(t, configureLogging("info", "xml"))
}

func TestParseAmount(t *testing.T) {
	amount, err := parseAmount("12.50")
	require.NoError(t, err)
	assert.Equal(t, "12.5", amount.String())

	_, err = parseAmount("abc")
	assert.Error(t, err)
	_, err = parseAmount("-1")
	assert.Error(t, err)
	_, err = parseAmount("0")
	assert.Error(t, err)
}

func TestAuditFilterFromFlags(t *testing.T) {
	defer func() {
		auditGiveawayID, auditUserID, auditAction, auditFrom, auditTo = 0, "", "", "", ""
	}()

	auditGiveawayID = 7
	auditUserID = "u1"
	auditAction = "draft_winner"
	auditFrom = "2025-01-01T00:00:00Z"

	filter, err := auditFilterFromFlags()
	require.NoError(t, err)
	require.NotNil(t, filter.GiveawayID)
	assert.Equal(t, int64(7), *filter.GiveawayID)
	assert.Equal(t, "u1", filter.UserID)
	assert.Equal(t, models.AuditActionDraftWinner, filter.Action)
	require.NotNil(t, filter.From)
	assert.Nil(t, filter.To)

	auditTo = "tomorrow"
	_, err = auditFilterFromFlags()
	assert.Error(t, err)
}

func TestRootCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["admin"])

	sub := map[string]bool{}
	for _, c := range adminCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"credit": true, "debit": true, "set-role": true, "audit-export": true}, sub)
}
