package llm

import "strings"

// framing explains the history markup to the model. The dialog history uses
// the same tagged-line form the dataset stores.
const framing = "Системное сообщение, которому ты должен следовать, " +
	"отмечено словом 'system'. " +
	"Предыдущие сообщения пользователя отмечены словом 'user'. " +
	"Твои предыдущие сообщения отмечены словом 'VIKA'. " +
	"\n\nИстория сообщений:"

// BuildPrompt assembles the single user-role prompt sent to the model: the
// framing text, the accumulated history, the allowed action list and the new
// user message.
func BuildPrompt(history []string, actions []string, userMessage string) string {
	var b strings.Builder
	b.WriteString(framing)
	for _, line := range history {
		b.WriteByte('\n')
		b.WriteString(line)
	}
	b.WriteString("\n\nТы можешь совершать только действия из представленного списка.\n")
	b.WriteString("Доступные действия:\n Разговор")
	for _, action := range actions {
		b.WriteString(", ")
		b.WriteString(action)
	}
	b.WriteString("\n\nОтветь на сообщение пользователя, беря во внимания всю предыдущую информацию.\nСообщение пользователя:\n")
	b.WriteString(userMessage)
	return b.String()
}
