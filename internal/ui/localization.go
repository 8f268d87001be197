package ui

import (
	"github.com/ytget/jobmon/internal/model"
)

// Localization manages UI text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Text keys for localization
const (
	KeyAppTitle         = "app_title"
	KeyNewDemoJob       = "new_demo_job"
	KeyStopAll          = "stop_all"
	KeySettings         = "settings"
	KeyFile             = "file"
	KeyLanguage         = "language"
	KeyPause            = "pause"
	KeyResume           = "resume"
	KeyStop             = "stop"
	KeySave             = "save"
	KeyCancel           = "cancel"
	KeySettingsSaved    = "settings_saved"
	KeyRestartNotice    = "restart_notice"
	KeyRefreshInterval  = "refresh_interval"
	KeyFullRefreshEvery = "full_refresh_every"
	KeyRemoveDelay      = "remove_delay"
	KeyMaxParallel      = "max_parallel"
	KeyJobsCount        = "jobs_count"
	KeyNoJobs           = "no_jobs"
	KeyErrorStoppingJob = "error_stopping_job"
	KeyErrorPausingJob  = "error_pausing_job"

	KeyStateNotStarted  = "state_not_started"
	KeyStateRunning     = "state_running"
	KeyStatePaused      = "state_paused"
	KeyStateFinished    = "state_finished"
	KeyStateInterrupted = "state_interrupted"
)

// stateKeys maps job states onto their text keys
var stateKeys = map[model.JobState]string{
	model.JobStateNotStarted:  KeyStateNotStarted,
	model.JobStateRunning:     KeyStateRunning,
	model.JobStatePaused:      KeyStatePaused,
	model.JobStateFinished:    KeyStateFinished,
	model.JobStateInterrupted: KeyStateInterrupted,
}

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: "en",
		texts:           make(map[string]map[string]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language
func (l *Localization) SetLanguage(lang string) {
	if lang == "system" {
		// Use system locale - simplified to English for now
		lang = "en"
	}

	if _, exists := l.texts[lang]; exists {
		l.currentLanguage = lang
	}
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if texts, exists := l.texts[l.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Fallback to English
	if texts, exists := l.texts["en"]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Final fallback - return key itself
	return key
}

// StateText returns the localized label of a job state
func (l *Localization) StateText(state model.JobState) string {
	key, ok := stateKeys[state]
	if !ok {
		return state.String()
	}
	return l.GetText(key)
}

// GetCurrentLanguage returns the current language code
func (l *Localization) GetCurrentLanguage() string {
	return l.currentLanguage
}

// GetAvailableLanguages returns map of available languages with their display names
func (l *Localization) GetAvailableLanguages() map[string]string {
	return map[string]string{
		"en": "English",
		"ru": "Русский",
		"pt": "Português",
	}
}

// initializeTexts initializes all text translations
func (l *Localization) initializeTexts() {
	// English texts
	l.texts["en"] = map[string]string{
		KeyAppTitle:         "Job Monitor",
		KeyNewDemoJob:       "New demo job",
		KeyStopAll:          "Stop all",
		KeySettings:         "Settings",
		KeyFile:             "File",
		KeyLanguage:         "Language",
		KeyPause:            "Pause",
		KeyResume:           "Resume",
		KeyStop:             "Stop",
		KeySave:             "Save",
		KeyCancel:           "Cancel",
		KeySettingsSaved:    "Settings saved successfully!",
		KeyRestartNotice:    "Refresh timing applies after restart.",
		KeyRefreshInterval:  "Refresh interval (ms)",
		KeyFullRefreshEvery: "Full refresh every N polls",
		KeyRemoveDelay:      "Keep finished jobs for (ms)",
		KeyMaxParallel:      "Max parallel jobs",
		KeyJobsCount:        "Jobs: %d",
		KeyNoJobs:           "No background jobs",
		KeyErrorStoppingJob: "Error stopping job",
		KeyErrorPausingJob:  "Error pausing job",
		KeyStateNotStarted:  "Queued",
		KeyStateRunning:     "Running",
		KeyStatePaused:      "Paused",
		KeyStateFinished:    "Finished",
		KeyStateInterrupted: "Interrupted",
	}

	// Russian texts
	l.texts["ru"] = map[string]string{
		KeyAppTitle:         "Монитор задач",
		KeyNewDemoJob:       "Новая демо-задача",
		KeyStopAll:          "Остановить все",
		KeySettings:         "Настройки",
		KeyFile:             "Файл",
		KeyLanguage:         "Язык",
		KeyPause:            "Пауза",
		KeyResume:           "Продолжить",
		KeyStop:             "Стоп",
		KeySave:             "Сохранить",
		KeyCancel:           "Отмена",
		KeySettingsSaved:    "Настройки успешно сохранены!",
		KeyRestartNotice:    "Частота обновления применится после перезапуска.",
		KeyRefreshInterval:  "Интервал обновления (мс)",
		KeyFullRefreshEvery: "Полное обновление каждые N опросов",
		KeyRemoveDelay:      "Показывать завершённые (мс)",
		KeyMaxParallel:      "Макс. параллельных задач",
		KeyJobsCount:        "Задач: %d",
		KeyNoJobs:           "Нет фоновых задач",
		KeyErrorStoppingJob: "Ошибка остановки задачи",
		KeyErrorPausingJob:  "Ошибка приостановки задачи",
		KeyStateNotStarted:  "В очереди",
		KeyStateRunning:     "Выполняется",
		KeyStatePaused:      "Пауза",
		KeyStateFinished:    "Завершена",
		KeyStateInterrupted: "Прервана",
	}

	// Portuguese texts
	l.texts["pt"] = map[string]string{
		KeyAppTitle:         "Monitor de Tarefas",
		KeyNewDemoJob:       "Nova tarefa demo",
		KeyStopAll:          "Parar todas",
		KeySettings:         "Configurações",
		KeyFile:             "Arquivo",
		KeyLanguage:         "Idioma",
		KeyPause:            "Pausar",
		KeyResume:           "Retomar",
		KeyStop:             "Parar",
		KeySave:             "Salvar",
		KeyCancel:           "Cancelar",
		KeySettingsSaved:    "Configurações salvas com sucesso!",
		KeyRestartNotice:    "O intervalo de atualização vale após reiniciar.",
		KeyRefreshInterval:  "Intervalo de atualização (ms)",
		KeyFullRefreshEvery: "Atualização completa a cada N leituras",
		KeyRemoveDelay:      "Manter tarefas concluídas por (ms)",
		KeyMaxParallel:      "Máx. tarefas paralelas",
		KeyJobsCount:        "Tarefas: %d",
		KeyNoJobs:           "Nenhuma tarefa em segundo plano",
		KeyErrorStoppingJob: "Erro ao parar tarefa",
		KeyErrorPausingJob:  "Erro ao pausar tarefa",
		KeyStateNotStarted:  "Na fila",
		KeyStateRunning:     "Executando",
		KeyStatePaused:      "Pausada",
		KeyStateFinished:    "Concluída",
		KeyStateInterrupted: "Interrompida",
	}
}
