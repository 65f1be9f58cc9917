// SPDX-License-Identifier: Apache-2.0

package intent

// Term weights. A query needs roughly three strong terms to reach LEGAL_DIRECT
// on its own.
const (
	weightStrong     = 0.40
	weightMedium     = 0.25
	weightWeak       = 0.15
	weightCompliance = 0.25
)

// termRule assigns one weight to a group of folded phrases.
type termRule struct {
	phrases    []string
	weight     float64
	compliance bool
}

var termRules = []termRule{
	{
		weight: weightStrong,
		phrases: []string{
			"ley organica", "real decreto", "decreto ley", "decreto legislativo",
			"codigo civil", "codigo penal", "codigo de comercio",
			"estatuto de los trabajadores", "constitucion", "jurisprudencia",
			"sentencia", "tribunal supremo", "tribunal constitucional",
			"audiencia nacional", "tribunal superior de justicia", "tjue", "boe",
			"articulo", "legislacion", "normativa", "reglamento", "directiva",
			"recurso de casacion", "recurso de amparo", "recurso de alzada",
			"doctrina", "abogado", "jurisdiccion",
		},
	},
	{
		weight: weightMedium,
		phrases: []string{
			"ley", "leyes", "juzgado", "tribunal", "demanda", "recurso", "contrato",
			"despido", "despedir", "despedido", "despide", "despiden", "clausula",
			"denuncia", "prescripcion", "herencia",
			"testamento", "arrendamiento", "desahucio", "multa", "sancion",
			"indemnizacion", "responsabilidad civil", "impuesto", "hacienda",
			"iva", "irpf", "cotizacion", "seguridad social", "permiso de residencia",
			"nacionalidad", "convenio colectivo", "delito", "querella",
		},
	},
	{
		weight: weightWeak,
		phrases: []string{
			"legal", "ilegal", "juridico", "juridica", "norma", "derecho",
			"derechos", "requisito", "requisitos", "tramite", "notario",
			"registro", "alquiler", "nomina", "deuda", "reclamacion", "plazo",
			"obligatorio", "permitido", "prohibido", "trabajador", "trabajadora",
			"trabajadores", "baja medica", "baja laboral",
		},
	},
	{
		weight:     weightCompliance,
		compliance: true,
		phrases: []string{
			"rgpd", "lopdgdd", "proteccion de datos", "cumplimiento normativo",
			"compliance", "normativa obligatoria", "obligaciones legales",
			"prevencion de riesgos laborales", "canal de denuncias",
			"blanqueo de capitales", "esquema nacional de seguridad", "lssi",
			"registro de jornada", "auditoria de cumplimiento",
		},
	},
}

// areaRule tags a query with a legal area when any phrase appears.
type areaRule struct {
	area    string
	phrases []string
}

var areaRules = []areaRule{
	{area: "laboral", phrases: []string{"despido", "despedir", "despedido", "despide", "despiden", "trabajador", "trabajadores", "baja laboral", "contrato de trabajo", "nomina", "convenio", "vacaciones", "baja medica", "paro", "desempleo", "estatuto de los trabajadores", "salario", "jornada", "finiquito"}},
	{area: "fiscal", phrases: []string{"impuesto", "iva", "irpf", "hacienda", "tributo", "declaracion de la renta", "aeat", "modelo 303", "factura", "autonomo"}},
	{area: "mercantil", phrases: []string{"sociedad limitada", "sociedad anonima", "mercantil", "concurso de acreedores", "socios", "registro mercantil", "administrador"}},
	{area: "civil", phrases: []string{"herencia", "testamento", "divorcio", "custodia", "pension alimenticia", "compraventa", "sucesion", "sucesiones", "codigo civil"}},
	{area: "penal", phrases: []string{"delito", "denuncia", "penal", "condena", "fiscalia", "querella", "codigo penal"}},
	{area: "administrativo", phrases: []string{"procedimiento administrativo", "recurso de alzada", "licencia", "subvencion", "multa", "ayuntamiento", "silencio administrativo"}},
	{area: "proteccion_datos", phrases: []string{"rgpd", "proteccion de datos", "lopdgdd", "datos personales", "cookies", "aepd"}},
	{area: "consumo", phrases: []string{"consumidor", "garantia", "devolucion", "clausula abusiva", "hoja de reclamaciones"}},
	{area: "vivienda", phrases: []string{"alquiler", "arrendamiento", "desahucio", "fianza", "inquilino", "hipoteca", "comunidad de propietarios"}},
	{area: "extranjeria", phrases: []string{"permiso de residencia", "nie", "arraigo", "visado", "nacionalidad", "extranjeria", "asilo", "reagrupacion familiar"}},
}

// verticalBonus rewards verticals whose users' questions are often legal.
var verticalBonus = map[string]float64{
	"empleabilidad":    0.10,
	"agroconecta":      0.10,
	"emprendimiento":   0.05,
	"comercioconecta":  0.05,
	"serviciosconecta": 0.05,
}

// legalActions bypass scoring: the caller already knows the request is legal.
var legalActions = map[string]bool{
	"legal_search":     true,
	"legal_analysis":   true,
	"legal_alerts":     true,
	"legal_citations":  true,
	"legal_document":   true,
	"document_drafter": true,
	"contract_review":  true,
	"case_assistant":   true,
	"fiscal":           true,
	"laboral":          true,
	"compliance":       true,
}

// LegalVertical is the legal-intelligence vertical; everything in it is legal.
const LegalVertical = "jarabalex"
