package narrative

import (
	"fmt"
	"strings"
)

// Language selects the prompt and fallback wording.
type Language string

const (
	Spanish Language = "español"
	English Language = "english"
)

// ParseLanguage accepts the configured language name or its ISO code.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "es", "español", "espanol", "spanish":
		return Spanish, nil
	case "en", "english", "inglés", "ingles":
		return English, nil
	}
	return "", fmt.Errorf("unsupported narrative language %q (use español or english)", s)
}

type templates struct {
	groupIntro      string
	groupSections   []string
	groupData       string
	studentIntro    string
	studentSections []string
	studentData     string // %s is the student name

	groupTitle   string
	studentTitle string // %s is the student name

	unreachable string // %s is the host hint
	timeout     string
	failure     string // %s is the error
	disabled    string
	reportData  string
}

var catalog = map[Language]templates{
	Spanish: {
		groupIntro: "Eres un experto en análisis de datos educativos y pedagógicos. " +
			"Recibirás información de un grupo de estudiantes en formato JSON con calificaciones y métricas de desempeño académico.\n\n" +
			"Tu tarea es generar un reporte narrativo grupal en español, claro, conciso y profesional, dirigido a docentes y directivos académicos. " +
			"El informe debe estar organizado en secciones con títulos claros, redactados en párrafos fluidos, interpretativos y formales.\n\n" +
			"Incluye obligatoriamente esta estructura en el documento:\n",
		groupSections: []string{
			"Título del reporte grupal.",
			"Objetivo del análisis.",
			"Resumen de desempeño general.",
			"Estudiantes destacados y con bajo desempeño (tres mejores y tres en riesgo, explicando diferencias).",
			"Estudiantes aprobados y reprobados.",
			"Análisis de componentes de evaluación: Aporte Individual, Aporte Grupal, Proyecto y Examen.",
			"Comportamiento y asistencia: patrones generales, impacto en rendimiento, totales de faltas (destacando casos relevantes).",
			"Comparación general entre estudiantes: mejoras, caídas y tendencias grupales.",
			"Fortalezas y debilidades grupales: aspectos positivos comunes y debilidades colectivas.",
			"Recomendaciones pedagógicas prácticas y constructivas.",
		},
		groupData: "Datos del grupo:\n",
		studentIntro: "Eres un experto en análisis de datos educativos y pedagógicos. " +
			"Recibirás información de un estudiante en formato JSON, con calificaciones y métricas de desempeño académico.\n\n" +
			"Tu tarea es generar un reporte narrativo en español, claro, conciso y profesional, dirigido a docentes y directivos académicos. " +
			"El informe debe estar organizado en secciones con títulos claros, redactados en párrafos fluidos, interpretativos y formales.\n\n" +
			"Incluye obligatoriamente esta estructura en el documento:\n",
		studentSections: []string{
			"Título y nombre del estudiante.",
			"Objetivo del análisis.",
			"Resumen de desempeño general: promedio final y valoración cualitativa.",
			"Evolución académica en los trimestres: mejoras, caídas, patrones de progreso o retroceso.",
			"Análisis por componentes: Aporte Individual, Aporte Grupal, Proyecto y Examen.",
			"Comportamiento y asistencia: evolución y su influencia en el rendimiento.",
			"Fortalezas y debilidades del estudiante: principales logros y áreas de mejora.",
			"Recomendaciones pedagógicas personalizadas y constructivas.",
		},
		studentData: "Datos del estudiante %s:\n",

		groupTitle:   "Reporte Grupal",
		studentTitle: "Reporte Individual - %s",

		unreachable: "No se pudo conectar con el servicio de IA para generar la narrativa.\n\n" +
			"Por favor, verifica que:\n" +
			"- Ollama esté instalado y ejecutándose%s\n" +
			"- El modelo configurado esté descargado (ollama pull <modelo>)\n\n" +
			"Puedes iniciar Ollama ejecutando 'ollama serve' en una terminal.",
		timeout: "El modelo de IA está tardando demasiado en generar la narrativa.\n\n" +
			"Esto puede ocurrir con modelos grandes. Considera:\n" +
			"- Usar un modelo más pequeño (--model o default_model)\n" +
			"- Aumentar narrative_timeout_sec o intentar nuevamente",
		failure:    "Error al generar narrativa con IA: %s",
		disabled:   "Narrativa con IA desactivada para este reporte.",
		reportData: "Datos del reporte:\n",
	},
	English: {
		groupIntro: "You are an expert in educational and pedagogical data analysis. " +
			"You will receive information about a group of students as JSON, with grades and academic performance metrics.\n\n" +
			"Write a narrative group report in English that is clear, concise and professional, addressed to teachers and school leadership. " +
			"Organise the report in sections with clear headings, written as fluent, interpretive and formal paragraphs.\n\n" +
			"The document must follow this structure:\n",
		groupSections: []string{
			"Group report title.",
			"Purpose of the analysis.",
			"Overall performance summary.",
			"Top and struggling students (the best three and the three at risk, explaining the gap).",
			"Students passing and failing.",
			"Analysis of the assessment components: Individual Contribution, Group Contribution, Project and Exam.",
			"Behaviour and attendance: general patterns, effect on performance, absence totals (highlighting notable cases).",
			"Comparison across students: improvements, declines and group trends.",
			"Group strengths and weaknesses: shared positives and collective weak spots.",
			"Practical, constructive teaching recommendations.",
		},
		groupData: "Group data:\n",
		studentIntro: "You are an expert in educational and pedagogical data analysis. " +
			"You will receive information about one student as JSON, with grades and academic performance metrics.\n\n" +
			"Write a narrative report in English that is clear, concise and professional, addressed to teachers and school leadership. " +
			"Organise the report in sections with clear headings, written as fluent, interpretive and formal paragraphs.\n\n" +
			"The document must follow this structure:\n",
		studentSections: []string{
			"Title and student name.",
			"Purpose of the analysis.",
			"Overall performance summary: final average and qualitative assessment.",
			"Academic progress across terms: improvements, declines, patterns of progress or regression.",
			"Component analysis: Individual Contribution, Group Contribution, Project and Exam.",
			"Behaviour and attendance: how they changed and their effect on performance.",
			"Student strengths and weaknesses: main achievements and areas to improve.",
			"Personalised, constructive teaching recommendations.",
		},
		studentData: "Data for student %s:\n",

		groupTitle:   "Group Report",
		studentTitle: "Individual Report - %s",

		unreachable: "Could not reach the AI service to write the narrative.\n\n" +
			"Please check that:\n" +
			"- Ollama is installed and running%s\n" +
			"- The configured model has been pulled (ollama pull <model>)\n\n" +
			"You can start Ollama by running 'ollama serve' in a terminal.",
		timeout: "The AI model is taking too long to write the narrative.\n\n" +
			"This can happen with large models. Consider:\n" +
			"- Using a smaller model (--model or default_model)\n" +
			"- Raising narrative_timeout_sec or trying again",
		failure:    "Error while generating the AI narrative: %s",
		disabled:   "AI narrative disabled for this report.",
		reportData: "Report data:\n",
	},
}

func buildPrompt(intro string, sections []string, dataHeader string, payload []byte) string {
	var b strings.Builder
	b.WriteString(intro)
	for i, s := range sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	b.WriteString("\n")
	b.WriteString(dataHeader)
	b.Write(payload)
	return b.String()
}
