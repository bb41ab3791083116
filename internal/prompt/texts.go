package prompt

import (
	"clausegen/internal/ir"
)

// texts holds the fixed wording of one prompt language.
type texts struct {
	intro          string // %s: section title
	system         string
	doNotCopy      map[ir.SectionType]string
	doNotCopyOther string
	mandatory      string
	atLeast        string // %d: minimum subpoints
	format         string // %s, %s: first two labels
	newLine        string
	sentence       string
	noMerge        string
	lengthMin      string // %d %s
	lengthMax      string // %d %s
	params         string
	noParams       string
	partyTerms     string
	partyUse       string // %s / %s
	partyAvoid     string // %s
	topicPlan      string
	forbidden      string
	precedents     string
	noPrecedents   string
	constraints    []string
	onlyText       string
	writeLang      string
	retryHeader    string
	retryAtLeast   string // %d, %s, %s
	retryKeep      string
	retryScope     string // %s: section title
	yes, no        string
	units          map[string]string
}

var byLang = map[ir.Language]texts{
	ir.LangEN: {
		intro:  "You are a legal assistant. Generate the contract section %q.",
		system: "You are a careful legal drafting assistant. Strictly follow the user parameters and constraints. Write in a formal legal style. Do not invent facts.",
		doNotCopy: map[ir.SectionType]string{
			ir.SectionPaymentTerms:  "Do not copy amounts, currencies, rates, countries, company names, clause numbers, or bank details from precedents.",
			ir.SectionDeliveryTerms: "Do not copy addresses, specific dates, Incoterms, company names, or clause numbers from precedents.",
		},
		doNotCopyOther: "Do not copy amounts, dates, company names, or clause numbers from precedents.",
		mandatory:      "MANDATORY STRUCTURE REQUIREMENTS:",
		atLeast:        "- The section MUST contain AT LEAST %d numbered subclauses.",
		format:         "- Format: strictly %s, %s, ...",
		newLine:        "- Each subclause must be on a new line.",
		sentence:       "- Each subclause must be a complete legal sentence.",
		noMerge:        "- Do NOT merge multiple conditions into one subclause.",
		lengthMin:      "- Length: at least %d %s.",
		lengthMax:      "- Length: at most %d %s.",
		params:         "Parameters (must follow):",
		noParams:       "- (none provided)",
		partyTerms:     "Party terms (must follow consistently):",
		partyUse:       "- Use the party terms %q and %q across the entire section.",
		partyAvoid:     "- Do NOT use %s.",
		topicPlan:      "Topic plan (must cover, no repetition):",
		forbidden:      "Forbidden topics (do NOT mention):",
		precedents:     "Precedent excerpts (style only, not facts):",
		noPrecedents:   "- No precedents are available for this section; rely on the parameters and the topic plan only.",
		constraints: []string{
			"- Use only what is provided by the form parameters.",
			"- Avoid repetition: each idea must appear only once.",
			"- No placeholders like <AMOUNT>, [CURRENCY] or <TERM_DAYS> in the final text.",
			"- Vary the grammatical subject and sentence structure across clauses.",
		},
		onlyText:     "Generate ONLY the section text (without a heading).",
		writeLang:    "Write in English.",
		retryHeader:  "The previous draft failed validation:",
		retryAtLeast: "You MUST output AT LEAST %d subclauses formatted strictly as %s, %s, ... each on a new line.",
		retryKeep:    "DO NOT rewrite existing subclauses; add new ones without repetition.",
		retryScope:   "Every new subclause must add a distinct aspect within %s only.",
		yes:          "yes",
		no:           "no",
		units: map[string]string{
			"chars_no_spaces": "characters excluding spaces",
			"tokens":          "words",
		},
	},
	ir.LangRU: {
		intro:  "Ты — помощник юриста. Сгенерируй раздел договора %q.",
		system: "Ты — аккуратный юридический ассистент. Строго следуй параметрам и ограничениям из запроса пользователя. Пиши формально-деловым стилем. Не выдумывай факты.",
		doNotCopy: map[ir.SectionType]string{
			ir.SectionPaymentTerms:  "Не копируй реквизиты, суммы, валюты, ставки, страны и номера пунктов из прецедентов.",
			ir.SectionDeliveryTerms: "Не копируй адреса, сроки, Incoterms, компании и номера пунктов из прецедентов.",
		},
		doNotCopyOther: "Не копируй суммы, даты, названия компаний и номера пунктов из прецедентов.",
		mandatory:      "ОБЯЗАТЕЛЬНЫЕ ТРЕБОВАНИЯ К СТРУКТУРЕ:",
		atLeast:        "- Раздел ДОЛЖЕН содержать НЕ МЕНЕЕ %d подпунктов.",
		format:         "- Формат подпунктов: строго %s, %s, ...",
		newLine:        "- Каждый подпункт с новой строки.",
		sentence:       "- Каждый подпункт является законченным юридическим предложением.",
		noMerge:        "- НЕЛЬЗЯ объединять несколько условий в один подпункт.",
		lengthMin:      "- Объем: не менее %d %s.",
		lengthMax:      "- Объем: не более %d %s.",
		params:         "Параметры (обязательно соблюдай):",
		noParams:       "- (не заданы)",
		partyTerms:     "Термины сторон (обязательно соблюдай):",
		partyUse:       "- Используй термины %q и %q единообразно по всему тексту.",
		partyAvoid:     "- НЕ используй термины %s.",
		topicPlan:      "План тем (покрой все, без повторов):",
		forbidden:      "Запрещённые темы (не упоминать):",
		precedents:     "Фрагменты прецедентов (ТОЛЬКО стиль и формулировки, не факты):",
		noPrecedents:   "- Прецеденты для этого раздела отсутствуют; опирайся только на параметры и план тем.",
		constraints: []string{
			"- Все условия берутся ТОЛЬКО из параметров формы.",
			"- Не повторяй предложения и фразы: каждое утверждение появляется только один раз.",
			"- Не используй плейсхолдеры вида <AMOUNT>, [CURRENCY] или <TERM_DAYS> в финальном тексте.",
		},
		onlyText:     "Сгенерируй ТОЛЬКО текст раздела (без заголовка).",
		writeLang:    "Пиши на русском.",
		retryHeader:  "Предыдущий вариант не прошёл автоматическую проверку:",
		retryAtLeast: "Нужно НЕ МЕНЕЕ %d подпунктов формата %s, %s, ... каждый с новой строки.",
		retryKeep:    "ВАЖНО: не переписывай и не повторяй уже написанные подпункты.",
		retryScope:   "Каждый новый подпункт должен добавлять новый аспект и оставаться в рамках раздела %q.",
		yes:          "да",
		no:           "нет",
		units: map[string]string{
			"chars_no_spaces": "знаков без пробелов",
			"tokens":          "слов",
		},
	},
}

// valuePhrases turns enumerated form values into prose.
var valuePhrases = map[string]map[string]map[ir.Language]string{
	"payment_trigger": {
		"invoice_date":       {ir.LangEN: "from the invoice date", ir.LangRU: "с даты выставления счета"},
		"receipt_of_invoice": {ir.LangEN: "from the date of receipt of the invoice", ir.LangRU: "с даты получения счета"},
		"acceptance_date":    {ir.LangEN: "from the acceptance date", ir.LangRU: "с даты подписания документов о приемке"},
		"delivery_date":      {ir.LangEN: "from the delivery date", ir.LangRU: "с даты поставки товара"},
		"signing_date":       {ir.LangEN: "from the contract signing date", ir.LangRU: "с даты подписания договора"},
	},
	"bank_charges": {
		"payer":       {ir.LangEN: "bank charges are borne by the paying party", ir.LangRU: "банковские комиссии несет плательщик"},
		"beneficiary": {ir.LangEN: "bank charges are borne by the receiving party", ir.LangRU: "банковские комиссии несет получатель"},
		"shared":      {ir.LangEN: "bank charges are shared as agreed by the Parties", ir.LangRU: "банковские комиссии распределяются между Сторонами по согласованию"},
	},
	"vat_mode": {
		"exclusive_if_any": {ir.LangEN: "VAT is added on top of the price, if applicable", ir.LangRU: "НДС начисляется сверх цены, если подлежит применению"},
		"inclusive":        {ir.LangEN: "VAT is included in the price, if applicable", ir.LangRU: "НДС включен в цену, если подлежит применению"},
		"not_applicable":   {ir.LangEN: "VAT is not applicable", ir.LangRU: "НДС не применяется"},
	},
	"risk_transfer": {
		"upon_delivery": {ir.LangEN: "risk passes upon delivery", ir.LangRU: "риски переходят в момент поставки"},
		"upon_shipment": {ir.LangEN: "risk passes upon handover to the first carrier", ir.LangRU: "риски переходят в момент передачи первому перевозчику"},
		"per_incoterms": {ir.LangEN: "risk passes as set by the agreed Incoterms rule", ir.LangRU: "риски переходят согласно выбранному базису Инкотермс"},
	},
}

func textsFor(lang ir.Language) texts {
	if t, ok := byLang[lang]; ok {
		return t
	}
	return byLang[ir.LangRU]
}
