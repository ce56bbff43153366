package conversation

var specialtyProp = Property{
	Type:        "string",
	Description: "Especialidad del turno",
	Enum:        []string{"optico", "contactologo", "barbero"},
}

// ToolSpecs declares the callable surface advertised to the model. It must
// stay in lockstep with the ToolKind enum.
func ToolSpecs() []ToolSpec {
	return []ToolSpec{
		{
			Name:        string(ToolSendMenu),
			Description: "Envía la imagen del menú con precios al cliente. Usar cuando pregunta por precios o servicios.",
			Properties:  map[string]Property{},
		},
		{
			Name:        string(ToolCheckAvailability),
			Description: "Busca horarios libres. Requiere hora puntual (hora) o franja (desde y hasta).",
			Properties: map[string]Property{
				"especialidad": specialtyProp,
				"fecha":        {Type: "string", Description: "Fecha AAAA-MM-DD; vacío busca en los próximos días"},
				"hora":         {Type: "string", Description: "Hora puntual HH:MM"},
				"desde":        {Type: "integer", Description: "Hora de inicio de la franja (0-23)"},
				"hasta":        {Type: "integer", Description: "Hora de fin de la franja (0-23)"},
				"profesional":  {Type: "string", Description: "Nombre del profesional preferido, opcional"},
			},
			Required: []string{"especialidad"},
		},
		{
			Name:        string(ToolRegisterClient),
			Description: "Guarda los datos de contacto del cliente. Obligatorio antes de agendar.",
			Properties: map[string]Property{
				"nombre":   {Type: "string", Description: "Nombre completo"},
				"telefono": {Type: "string", Description: "Teléfono con característica"},
				"email":    {Type: "string", Description: "Email, opcional"},
			},
			Required: []string{"nombre", "telefono"},
		},
		{
			Name:        string(ToolBook),
			Description: "Agenda un turno confirmado por el cliente en fecha y hora exactas.",
			Properties: map[string]Property{
				"especialidad": specialtyProp,
				"fecha":        {Type: "string", Description: "Fecha AAAA-MM-DD"},
				"hora":         {Type: "string", Description: "Hora HH:MM"},
			},
			Required: []string{"especialidad", "fecha", "hora"},
		},
		{
			Name:        string(ToolCancel),
			Description: "Cancela el próximo turno activo del cliente.",
			Properties:  map[string]Property{},
		},
		{
			Name:        string(ToolReschedule),
			Description: "Mueve el próximo turno activo del cliente a una nueva fecha y hora.",
			Properties: map[string]Property{
				"especialidad": specialtyProp,
				"fecha":        {Type: "string", Description: "Nueva fecha AAAA-MM-DD"},
				"hora":         {Type: "string", Description: "Nueva hora HH:MM"},
			},
			Required: []string{"especialidad", "fecha", "hora"},
		},
		{
			Name:        string(ToolSearchProduct),
			Description: "Busca productos del catálogo por nombre y devuelve precios.",
			Properties: map[string]Property{
				"consulta": {Type: "string", Description: "Nombre o parte del nombre del producto"},
			},
			Required: []string{"consulta"},
		},
		{
			Name:        string(ToolPaymentLink),
			Description: "Genera un link de pago de Mercado Pago para productos confirmados por el cliente.",
			Properties: map[string]Property{
				"productos": {
					Type:        "array",
					Description: "Productos a cobrar",
					Items: &Property{
						Type: "object",
						Properties: map[string]Property{
							"nombre":   {Type: "string", Description: "Nombre del producto"},
							"cantidad": {Type: "integer", Description: "Cantidad, por defecto 1"},
						},
						Required: []string{"nombre"},
					},
				},
			},
			Required: []string{"productos"},
		},
	}
}
