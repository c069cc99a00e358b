package pipeline

import (
	"fmt"
	"strings"

	"github.com/agb-search/agb-searcher/internal/model"
)

// buildLookupPrompt constructs the main company lookup prompt. Non-empty web
// evidence is embedded as authoritative data the model must not override,
// and the model is told to return empty strings instead of inventing
// placeholder contact values.
func buildLookupPrompt(companyName string, evidence model.WebEvidence) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Найди ТОЛЬКО РЕАЛЬНУЮ и ПРОВЕРЕННУЮ информацию о компании %q в России.\n\n", companyName)
	b.WriteString("ВАЖНО: НЕ ВЫДУМЫВАЙ данные! Если информации нет - оставь поле пустым \"\".\n")
	b.WriteString("НИКОГДА не указывай шаблонные значения вроде \"+7 (495) 123-45-67\" или \"ул. Примерная\" - вместо них верни пустую строку.\n\n")

	if !evidence.IsEmpty() {
		b.WriteString("Уже подтверждённые данные из веб-поиска (используй их как есть, НЕ заменяй):\n")
		if evidence.Website != "" {
			fmt.Fprintf(&b, "- Сайт: %s\n", evidence.Website)
		}
		if evidence.Email != "" {
			fmt.Fprintf(&b, "- Email: %s\n", evidence.Email)
		}
		if evidence.Phone != "" {
			fmt.Fprintf(&b, "- Телефон: %s\n", evidence.Phone)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Ищи только:
- Официальный сайт компании (только реальный, проверенный)
- Контактные email адреса (только с официальных сайтов)
- Физический адрес (только из официальных источников)
- Телефон (только из официальных источников)
- Краткое описание деятельности (только факты)
- Оборудование (только если есть публичная информация)

Ответь ТОЛЬКО в формате JSON без дополнительного текста:
{
    "website": "",
    "email": "",
    "address": "",
    "phone": "",
    "description": "",
    "equipment": ""
}`)

	return b.String()
}

// buildSimplifiedPrompt is the fallback prompt after a refusal-shaped
// response: shorter, with the anti-fabrication framing softened.
func buildSimplifiedPrompt(companyName string) string {
	return fmt.Sprintf(`Дай краткую справку о компании %q в формате JSON с полями website, email, address, phone, description, equipment. Неизвестные поля оставь пустыми строками. Верни только JSON.`, companyName)
}

// buildEquipmentPrompt asks for companies that bought or use a piece of
// equipment, as a JSON array.
func buildEquipmentPrompt(equipmentName string) string {
	return fmt.Sprintf(`Найди РЕАЛЬНЫЕ компании в России, которые покупали или используют оборудование %q.

ВАЖНО: НЕ ВЫДУМЫВАЙ данные! Ищи только в открытых источниках.

Для каждой компании найди ТОЛЬКО ПРОВЕРЕННУЮ информацию:
- Название компании (реальное)
- Официальный сайт (только если есть)
- Контактный email (только с официальных сайтов)
- Адрес (только из официальных источников)
- Телефон (только из официальных источников)
- Краткое описание (только факты)

Если какой-то информации нет - оставь поле пустым "".
Если компаний не найдено - верни пустой массив [].

Ответь ТОЛЬКО в формате JSON массива без дополнительного текста:
[
    {
        "name": "",
        "website": "",
        "email": "",
        "address": "",
        "phone": "",
        "description": ""
    }
]`, equipmentName)
}
