package transport

import "encoding/json"

// VK keyboard button colors.
const (
	colorPrimary   = "primary"
	colorSecondary = "secondary"
	colorNegative  = "negative"
	colorPositive  = "positive"
)

type vkButtonAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

type vkButton struct {
	Action vkButtonAction `json:"action"`
	Color  string         `json:"color"`
}

type vkKeyboard struct {
	OneTime bool         `json:"one_time"`
	Buttons [][]vkButton `json:"buttons"`
}

func button(label, color string) vkButton {
	return vkButton{Action: vkButtonAction{Type: "text", Label: label}, Color: color}
}

// layouts maps each Keyboard to its button rows.
var layouts = map[Keyboard][][]vkButton{
	KeyboardMenu: {
		{
			button("Системный промпт", colorPrimary),
			button("Вывести JSON-структуру последнего сообщения", colorSecondary),
		},
		{button("Добавить диалог", colorPrimary)},
		{button("Посмотреть диалоги", colorPrimary)},
		{
			button("Изменить диалог", colorPrimary),
			button("Удалить диалог", colorNegative),
		},
		{
			button("Чат с моделью", colorPrimary),
			button("Помощь", colorPrimary),
		},
	},
	KeyboardEdit: {
		{
			button("Переименовать", colorPrimary),
			button("Изменить системную строку", colorPrimary),
		},
		{
			button("Изменить действия", colorPrimary),
			button("Изменить финальное действие", colorPrimary),
		},
		{
			button("Изменить реплику", colorPrimary),
			button("Показать диалог", colorSecondary),
		},
		{button("Выход", colorNegative)},
	},
	KeyboardYesNo: {
		{
			button("Да", colorPositive),
			button("Нет", colorNegative),
		},
	},
}

// renderKeyboard serializes a named layout into VK keyboard JSON. Unknown or
// empty layouts yield nil, meaning no keyboard is attached.
func renderKeyboard(kb Keyboard) []byte {
	rows, ok := layouts[kb]
	if !ok {
		return nil
	}
	data, err := json.Marshal(vkKeyboard{OneTime: true, Buttons: rows})
	if err != nil {
		return nil
	}
	return data
}
