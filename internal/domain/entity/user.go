package entity

// UserState состояние оператора в диалоге с ботом
type UserState string

const (
	StateMainMenu      UserState = "main_menu"      // В главном меню
	StateAwaitingPhoto UserState = "awaiting_photo" // Выбран патч, ждём растр
	StateProcessing    UserState = "processing"     // Обработка изображения
)

// User оператор разметки в боте
type User struct {
	ID       int64     // Telegram User ID
	ChatID   int64     // Telegram Chat ID
	State    UserState // Текущее состояние пользователя
	Patch    string    // метка выбранного патча
	VoidType string    // тип, которым помечаются найденные области
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:       userID,
		ChatID:   chatID,
		State:    StateMainMenu,
		VoidType: "void",
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// SelectPatch запоминает патч и переводит в ожидание растра.
func (u *User) SelectPatch(label string) {
	u.Patch = label
	u.State = StateAwaitingPhoto
}

// Reset возвращает пользователя в главное меню.
func (u *User) Reset() {
	u.Patch = ""
	u.State = StateMainMenu
}
