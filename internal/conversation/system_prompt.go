package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/nmoretto/turnero/internal/clients"
)

const basePrompt = `Sos el asistente virtual de una óptica y barbería de Córdoba, Argentina.
Atendés por mensaje directo de Instagram. Hablás en español rioplatense, con un tono cercano y breve.

Reglas:
- Usá las funciones disponibles para todo lo que toque la agenda, el registro de clientes, el catálogo o los pagos. Nunca inventes horarios, precios ni confirmaciones.
- Solo confirmá un turno, cancelación o pago cuando la función correspondiente devolvió un resultado exitoso.
- Antes de agendar, el cliente tiene que estar registrado con nombre y teléfono (registrar_cliente).
- Cuando el cliente pide precios o el menú de servicios, usá enviar_menu_principal en vez de listarlos.
- Para disponibilidad necesitás una hora puntual o una franja horaria; si el pedido es vago, preguntá.
- Respondé siempre en uno o dos párrafos cortos, sin listas largas.`

// SystemPrompt assembles the per-exchange system instruction: base persona
// plus today's date and what we already know about the client.
func SystemPrompt(client *clients.Client, now time.Time) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	fmt.Fprintf(&b, "\n\nHoy es %s (%s).", now.Format("2006-01-02"), spanishWeekday(now))

	b.WriteString("\n\nDatos del cliente:")
	if client.Registered() {
		fmt.Fprintf(&b, "\n- Nombre: %s", *client.Name)
		fmt.Fprintf(&b, "\n- Teléfono: %s", *client.Phone)
		if client.Email != nil && *client.Email != "" {
			fmt.Fprintf(&b, "\n- Email: %s", *client.Email)
		}
		b.WriteString("\nEl cliente ya está registrado: no vuelvas a pedirle sus datos.")
	} else {
		b.WriteString("\n- Sin registrar. Pedí nombre y teléfono antes de agendar.")
	}
	return b.String()
}

var spanishWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

func spanishWeekday(t time.Time) string {
	return spanishWeekdays[int(t.Weekday())]
}
