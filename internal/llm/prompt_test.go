package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	history := []string{
		"system: 'будь полезной'",
		"user: 'привет'",
		"VIKA: 'здравствуйте'",
	}
	prompt := BuildPrompt(history, []string{"Свет", "Музыка"}, "включи свет")

	for _, line := range history {
		assert.Contains(t, prompt, line)
	}
	assert.Contains(t, prompt, "Доступные действия:\n Разговор, Свет, Музыка")
	assert.True(t, strings.HasSuffix(prompt, "Сообщение пользователя:\nвключи свет"))
}

func TestBuildPromptDefaultActionOnly(t *testing.T) {
	prompt := BuildPrompt(nil, nil, "привет")
	assert.Contains(t, prompt, "Доступные действия:\n Разговор\n")
}
