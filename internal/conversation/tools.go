package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nmoretto/turnero/internal/availability"
	"github.com/nmoretto/turnero/internal/booking"
	"github.com/nmoretto/turnero/internal/catalog"
	"github.com/nmoretto/turnero/internal/clients"
	"github.com/nmoretto/turnero/internal/orders"
	"github.com/nmoretto/turnero/internal/professionals"
	"github.com/nmoretto/turnero/pkg/logging"
)

// ToolKind is the closed set of functions the model may call. Anything
// outside the enum is answered with an error string, never dispatched.
type ToolKind string

const (
	ToolSendMenu          ToolKind = "enviar_menu_principal"
	ToolCheckAvailability ToolKind = "consultar_disponibilidad"
	ToolRegisterClient    ToolKind = "registrar_cliente"
	ToolBook              ToolKind = "agendar_turno"
	ToolCancel            ToolKind = "cancelar_turno"
	ToolReschedule        ToolKind = "mover_turno"
	ToolSearchProduct     ToolKind = "buscar_producto"
	ToolPaymentLink       ToolKind = "generar_link_pago"
)

// ParseToolKind validates a model-supplied function name against the enum.
func ParseToolKind(name string) (ToolKind, bool) {
	switch k := ToolKind(name); k {
	case ToolSendMenu, ToolCheckAvailability, ToolRegisterClient, ToolBook,
		ToolCancel, ToolReschedule, ToolSearchProduct, ToolPaymentLink:
		return k, true
	}
	return "", false
}

// Effects records which state-changing tools succeeded during one exchange.
// The reply gate uses it to catch confirmations the model did not earn.
type Effects struct {
	Booked    bool
	Cancelled bool
	Moved     bool
	LinkSent  bool
}

// Session is the per-exchange context a dispatch runs in. Client is
// refreshed in place when the registration tool updates contact data.
type Session struct {
	SenderID string
	Client   *clients.Client
	Effects  Effects
}

type booker interface {
	Book(ctx context.Context, client *clients.Client, profType professionals.Type, start time.Time) (*booking.Confirmation, error)
	Cancel(ctx context.Context, clientID int64) (*booking.Appointment, error)
	Reschedule(ctx context.Context, client *clients.Client, profType professionals.Type, newStart time.Time) (*booking.Confirmation, error)
}

type slotSearcher interface {
	FindSlots(ctx context.Context, pool []professionals.Professional, duration time.Duration, f availability.Filter) ([]string, error)
}

type professionalSource interface {
	ListByType(ctx context.Context, profType professionals.Type, nameFilter string) ([]professionals.Professional, error)
}

type contactStore interface {
	UpdateContact(ctx context.Context, id int64, name, phone, email *string) (*clients.Client, error)
}

type productSource interface {
	SearchFuzzy(ctx context.Context, query string) ([]catalog.Product, error)
}

type checkoutCreator interface {
	CreateCheckout(ctx context.Context, clientID int64, lines []orders.CartLine) (*orders.Checkout, error)
}

type imageSender interface {
	SendImage(ctx context.Context, recipientID, imageURL string) error
}

// Dispatcher executes tool calls against the domain services. Every path
// returns a string: failures come back as text the model can relay, so a
// broken tool never kills the loop.
type Dispatcher struct {
	searcher  slotSearcher
	profs     professionalSource
	booking   booker
	contacts  contactStore
	products  productSource
	checkout  checkoutCreator
	images    imageSender
	menuImage string
	loc       *time.Location
	logger    *logging.Logger
}

// NewDispatcher wires the dispatcher. images may be nil when the channel
// cannot send attachments.
func NewDispatcher(searcher slotSearcher, profs professionalSource, book booker, contacts contactStore, products productSource, checkout checkoutCreator, images imageSender, menuImage string, loc *time.Location, logger *logging.Logger) *Dispatcher {
	if searcher == nil || profs == nil || book == nil || contacts == nil || products == nil || checkout == nil {
		panic("conversation: dispatcher dependencies required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		searcher:  searcher,
		profs:     profs,
		booking:   book,
		contacts:  contacts,
		products:  products,
		checkout:  checkout,
		images:    images,
		menuImage: menuImage,
		loc:       loc,
		logger:    logger,
	}
}

// Dispatch runs one tool call and returns its textual result.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, call ToolCall) string {
	kind, ok := ParseToolKind(call.Name)
	if !ok {
		d.logger.Warn("model requested unknown tool", "tool", call.Name)
		return fmt.Sprintf("Error: la función %q no existe.", call.Name)
	}

	d.logger.Info("dispatching tool", "tool", kind, "client", sess.Client.ID)

	switch kind {
	case ToolSendMenu:
		return d.sendMenu(ctx, sess)
	case ToolCheckAvailability:
		return d.checkAvailability(ctx, call.Args)
	case ToolRegisterClient:
		return d.registerClient(ctx, sess, call.Args)
	case ToolBook:
		return d.book(ctx, sess, call.Args)
	case ToolCancel:
		return d.cancel(ctx, sess)
	case ToolReschedule:
		return d.reschedule(ctx, sess, call.Args)
	case ToolSearchProduct:
		return d.searchProduct(ctx, call.Args)
	case ToolPaymentLink:
		return d.paymentLink(ctx, sess, call.Args)
	}
	return fmt.Sprintf("Error: la función %q no existe.", call.Name)
}

func (d *Dispatcher) sendMenu(ctx context.Context, sess *Session) string {
	if d.images == nil || d.menuImage == "" {
		return "El menú con precios está disponible en nuestro perfil de Instagram."
	}
	if err := d.images.SendImage(ctx, sess.SenderID, d.menuImage); err != nil {
		d.logger.Warn("menu image send failed", "error", err)
		return "No pude enviar la imagen del menú, pero puedo responder consultas sobre precios."
	}
	return "Menú enviado como imagen. No hace falta repetir los precios."
}

func (d *Dispatcher) checkAvailability(ctx context.Context, args map[string]any) string {
	profType, errMsg := parseSpecialty(argString(args, "especialidad"))
	if errMsg != "" {
		return errMsg
	}

	f := availability.Filter{
		Date:         argString(args, "fecha"),
		SpecificTime: argString(args, "hora"),
	}
	desde, okDesde := argInt(args, "desde")
	hasta, okHasta := argInt(args, "hasta")
	if okDesde && okHasta {
		f.Range = &availability.HourRange{Start: desde, End: hasta}
	}

	pool, err := d.profs.ListByType(ctx, profType, argString(args, "profesional"))
	if err != nil {
		d.logger.Error("professional lookup failed", "error", err)
		return "Error consultando los profesionales. Intentá de nuevo en un momento."
	}
	if len(pool) == 0 {
		return fmt.Sprintf("No hay profesionales de %s disponibles.", profType)
	}

	slots, err := d.searcher.FindSlots(ctx, pool, profType.AppointmentDuration(), f)
	if errors.Is(err, availability.ErrAmbiguousFilter) {
		return "Necesito una hora puntual (por ejemplo 15:00) o una franja horaria (por ejemplo de 9 a 12) para buscar."
	}
	if err != nil {
		d.logger.Error("availability search failed", "error", err)
		return "Error consultando la agenda. Intentá de nuevo en un momento."
	}
	return strings.Join(slots, "\n")
}

func (d *Dispatcher) registerClient(ctx context.Context, sess *Session, args map[string]any) string {
	name := argString(args, "nombre")
	phone := argString(args, "telefono")
	if name == "" || phone == "" {
		return "Para registrarte necesito nombre y teléfono."
	}
	var email *string
	if e := argString(args, "email"); e != "" {
		email = &e
	}

	updated, err := d.contacts.UpdateContact(ctx, sess.Client.ID, &name, &phone, email)
	if err != nil {
		d.logger.Error("client registration failed", "error", err)
		return "Error guardando tus datos. Intentá de nuevo."
	}
	sess.Client = updated
	return fmt.Sprintf("Cliente registrado: %s (%s).", name, phone)
}

func (d *Dispatcher) book(ctx context.Context, sess *Session, args map[string]any) string {
	if !sess.Client.Registered() {
		return "Antes de agendar necesito registrar al cliente con registrar_cliente (nombre y teléfono)."
	}
	profType, errMsg := parseSpecialty(argString(args, "especialidad"))
	if errMsg != "" {
		return errMsg
	}
	start, errMsg := parseStart(args, d.loc)
	if errMsg != "" {
		return errMsg
	}

	conf, err := d.booking.Book(ctx, sess.Client, profType, start)
	switch {
	case errors.Is(err, booking.ErrPastTime):
		return "Ese horario ya pasó. Indicá una fecha y hora futuras."
	case errors.Is(err, booking.ErrDuplicateBooking):
		return "Ya tenés un turno activo en ese horario."
	case errors.Is(err, booking.ErrNoProfessional):
		return fmt.Sprintf("No hay profesionales de %s para agendar.", profType)
	case err != nil:
		d.logger.Error("booking failed", "error", err)
		return "No pude confirmar el turno en la agenda. Intentá de nuevo en unos minutos."
	}

	sess.Effects.Booked = true
	return fmt.Sprintf("Turno confirmado con %s el %s a las %s.",
		conf.Professional.Name,
		conf.Appointment.StartTime.In(d.loc).Format("02/01/2006"),
		conf.Appointment.StartTime.In(d.loc).Format("15:04"))
}

func (d *Dispatcher) cancel(ctx context.Context, sess *Session) string {
	appt, err := d.booking.Cancel(ctx, sess.Client.ID)
	switch {
	case errors.Is(err, booking.ErrNoActiveAppointment):
		return "No encontré un turno activo para cancelar."
	case err != nil:
		d.logger.Error("cancel failed", "error", err)
		return "No pude cancelar el turno. Intentá de nuevo en unos minutos."
	}

	sess.Effects.Cancelled = true
	return fmt.Sprintf("Turno del %s a las %s cancelado.",
		appt.StartTime.In(d.loc).Format("02/01/2006"),
		appt.StartTime.In(d.loc).Format("15:04"))
}

func (d *Dispatcher) reschedule(ctx context.Context, sess *Session, args map[string]any) string {
	if !sess.Client.Registered() {
		return "Antes de mover un turno necesito registrar al cliente con registrar_cliente."
	}
	profType, errMsg := parseSpecialty(argString(args, "especialidad"))
	if errMsg != "" {
		return errMsg
	}
	start, errMsg := parseStart(args, d.loc)
	if errMsg != "" {
		return errMsg
	}

	conf, err := d.booking.Reschedule(ctx, sess.Client, profType, start)
	switch {
	case errors.Is(err, booking.ErrNoActiveAppointment):
		return "No encontré un turno activo para mover."
	case errors.Is(err, booking.ErrPastTime):
		return "Ese horario ya pasó. Indicá una fecha y hora futuras."
	case errors.Is(err, booking.ErrDuplicateBooking):
		return "Ya tenés un turno activo en ese horario."
	case err != nil:
		d.logger.Error("reschedule failed", "error", err)
		return "No pude mover el turno. El turno original sigue vigente."
	}

	sess.Effects.Moved = true
	return fmt.Sprintf("Turno movido: ahora es con %s el %s a las %s.",
		conf.Professional.Name,
		conf.Appointment.StartTime.In(d.loc).Format("02/01/2006"),
		conf.Appointment.StartTime.In(d.loc).Format("15:04"))
}

func (d *Dispatcher) searchProduct(ctx context.Context, args map[string]any) string {
	query := argString(args, "consulta")
	if query == "" {
		return "Indicá qué producto querés buscar."
	}
	matches, err := d.products.SearchFuzzy(ctx, query)
	if err != nil {
		d.logger.Error("product search failed", "error", err)
		return "Error buscando en el catálogo. Intentá de nuevo."
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No encontré productos que coincidan con %q.", query)
	}

	lines := make([]string, 0, len(matches))
	for _, p := range matches {
		lines = append(lines, fmt.Sprintf("%s: $%.2f", p.Name, float64(p.PriceCents)/100))
	}
	return strings.Join(lines, "\n")
}

func (d *Dispatcher) paymentLink(ctx context.Context, sess *Session, args map[string]any) string {
	rawItems, _ := args["productos"].([]any)
	var lines []orders.CartLine
	for _, raw := range rawItems {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		qty, _ := argInt(item, "cantidad")
		if qty < 1 {
			qty = 1
		}
		if name := argString(item, "nombre"); name != "" {
			lines = append(lines, orders.CartLine{Query: name, Quantity: int32(qty)})
		}
	}
	if len(lines) == 0 {
		return "Indicá al menos un producto para generar el link de pago."
	}

	out, err := d.checkout.CreateCheckout(ctx, sess.Client.ID, lines)
	if errors.Is(err, orders.ErrUnknownProduct) {
		return fmt.Sprintf("No encontré uno de los productos pedidos: %v.", err)
	}
	if err != nil {
		d.logger.Error("checkout failed", "error", err)
		return "No pude generar el link de pago. Intentá de nuevo en unos minutos."
	}

	sess.Effects.LinkSent = true
	return fmt.Sprintf("Link de pago por $%.2f: %s", float64(out.Order.TotalCents)/100, out.Link)
}

func parseSpecialty(raw string) (professionals.Type, string) {
	switch professionals.Type(strings.ToLower(strings.TrimSpace(raw))) {
	case professionals.TypeOptico:
		return professionals.TypeOptico, ""
	case professionals.TypeContactologo:
		return professionals.TypeContactologo, ""
	case professionals.TypeBarbero:
		return professionals.TypeBarbero, ""
	}
	return "", fmt.Sprintf("Especialidad %q desconocida. Las opciones son optico, contactologo o barbero.", raw)
}

func parseStart(args map[string]any, loc *time.Location) (time.Time, string) {
	date := argString(args, "fecha")
	clock := argString(args, "hora")
	if date == "" || clock == "" {
		return time.Time{}, "Necesito fecha (AAAA-MM-DD) y hora (HH:MM) para el turno."
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Sprintf("No entendí la fecha u hora (%s %s). Usá AAAA-MM-DD y HH:MM.", date, clock)
	}
	return start, ""
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func argInt(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}
