package service

import (
	"strings"

	"waha-crm/internal/domain"
)

// Acciones posibles de una opción de menú.
const (
	MenuActionAI     = "ai"
	MenuActionHuman  = "human"
	MenuActionRepeat = "repeat"
	MenuActionGoto   = "goto"
)

type MenuOption struct {
	Key    string
	Label  string
	Action string
	Target string // menú destino cuando Action == goto
}

type Menu struct {
	ID      string
	Title   string
	Options []MenuOption
}

// MenuResult es el efecto de procesar una entrada contra el menú vigente.
type MenuResult struct {
	Reply    string
	Status   string
	Menu     string
	Step     int
	Escalate bool
}

// MenuEngine navega el árbol declarativo de menús de atención.
type MenuEngine struct {
	menus map[string]Menu
	root  string
}

func NewMenuEngine(menus []Menu, root string) *MenuEngine {
	index := make(map[string]Menu, len(menus))
	for _, m := range menus {
		index[m.ID] = m
	}
	return &MenuEngine{menus: index, root: root}
}

// DefaultMenus define el árbol de atención estándar.
func DefaultMenus() *MenuEngine {
	menus := []Menu{
		{
			ID:    "root",
			Title: "Olá! Como podemos ajudar?",
			Options: []MenuOption{
				{Key: "1", Label: "Falar com nosso assistente virtual", Action: MenuActionAI},
				{Key: "2", Label: "Falar com um atendente", Action: MenuActionHuman},
				{Key: "0", Label: "Repetir as opções", Action: MenuActionRepeat},
			},
		},
	}
	return NewMenuEngine(menus, "root")
}

// RootID devuelve el menú inicial de toda conversación nueva.
func (e *MenuEngine) RootID() string {
	return e.root
}

// Render arma el texto del menú con sus opciones numeradas.
func (e *MenuEngine) Render(menuID string) string {
	menu, ok := e.menus[menuID]
	if !ok {
		menu = e.menus[e.root]
	}
	var b strings.Builder
	b.WriteString(menu.Title)
	for _, opt := range menu.Options {
		b.WriteString("\n")
		b.WriteString(opt.Key)
		b.WriteString(" - ")
		b.WriteString(opt.Label)
	}
	return b.String()
}

// Handle procesa la entrada del lead contra el menú y paso actuales.
// Entradas desconocidas reenvían el menú vigente sin cambiar de estado.
func (e *MenuEngine) Handle(conv domain.Conversation, input string) MenuResult {
	menuID := conv.CurrentMenu
	if _, ok := e.menus[menuID]; !ok {
		menuID = e.root
	}

	result := MenuResult{
		Status: domain.ConversationStatusMenu,
		Menu:   menuID,
		Step:   conv.CurrentStep,
	}

	input = strings.TrimSpace(input)
	menu := e.menus[menuID]
	for _, opt := range menu.Options {
		if opt.Key != input {
			continue
		}
		switch opt.Action {
		case MenuActionAI:
			result.Status = domain.ConversationStatusAI
			result.Reply = "Perfeito! Pode enviar sua dúvida que nosso assistente responde."
			return result
		case MenuActionHuman:
			result.Status = domain.ConversationStatusWaiting
			result.Escalate = true
			result.Reply = "Certo! Um atendente vai falar com você em instantes."
			return result
		case MenuActionGoto:
			if _, ok := e.menus[opt.Target]; ok {
				result.Menu = opt.Target
				result.Step = conv.CurrentStep + 1
				result.Reply = e.Render(opt.Target)
				return result
			}
		case MenuActionRepeat:
			result.Reply = e.Render(menuID)
			return result
		}
	}

	// Entrada fuera del menú: repetir opciones.
	result.Reply = e.Render(menuID)
	return result
}
