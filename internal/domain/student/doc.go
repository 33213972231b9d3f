// Package student содержит доменную модель абитуриента, который сдаёт ЕГЭ.
//
// Пакет определяет:
//
//   - Сущности: Student, ScoreEntry
//   - Value Objects: UserID, Score, ScoreWriteMode
//   - Валидацию ввода: ValidateName, ValidateSubject, ValidateScore
//   - Интерфейс хранилища: Gateway
//
// # Инварианты
//
// Для одного UserID существует не более одного Student. Повторная регистрация
// не перезаписывает данные, Gateway.Register в этом случае возвращает nil.
//
// Балл всегда в диапазоне [0, 100]. В режиме WriteModeReplace на пару
// (UserID, предмет) приходится одна запись, в WriteModeAppend каждая попытка
// сохраняется отдельно:
//
//	mode, err := student.ParseScoreWriteMode(cfg.ScoreWriteMode)
//	if err != nil {
//	    return err
//	}
//	gw := memory.NewGateway(mode)
//	_ = gw.UpsertScore(ctx, userID, "Математика", 70)
//	_ = gw.UpsertScore(ctx, userID, "Математика", 85)
//
// # Валидация
//
// Функции валидации чистые: они обрезают пробелы, приводят строку к NFC и
// возвращают нормализованное значение вместе с вердиктом.
package student
