package app

import "grandlucky-quiz-service/internal/domain"

// DefaultFallbackLang is used when a language has no bank of its own.
const DefaultFallbackLang = "en"

// FallbackBank holds static questions per language.
type FallbackBank map[string][]domain.PoolQuestion

// For returns the bank for lang, or the default bank. The result is a copy.
func (b FallbackBank) For(lang string) []domain.PoolQuestion {
	qs, ok := b[lang]
	if !ok || len(qs) == 0 {
		qs = b[DefaultFallbackLang]
	}
	return append([]domain.PoolQuestion(nil), qs...)
}

// DefaultFallbackBank is compiled into the binary so a quiz can always be served.
func DefaultFallbackBank() FallbackBank {
	return FallbackBank{
		"hu": {
			fb("fb-hu-01", "hu", "geography", "Melyik város Portugália fővárosa?", "Lisszabon", "Porto", "Madrid", "Sevilla"),
			fb("fb-hu-02", "hu", "geography", "Melyik ország területén található a Machu Picchu?", "Peru", "Chile", "Bolívia", "Ecuador"),
			fb("fb-hu-03", "hu", "geography", "Melyik a világ legnagyobb sivataga a poláris területeken kívül?", "Szahara", "Góbi", "Kalahári", "Atacama"),
			fb("fb-hu-04", "hu", "culture", "Melyik városban áll a Sagrada Família?", "Barcelona", "Valencia", "Madrid", "Bilbao"),
			fb("fb-hu-05", "hu", "culture", "Melyik ország nemzeti étele a paella?", "Spanyolország", "Olaszország", "Görögország", "Mexikó"),
			fb("fb-hu-06", "hu", "travel", "Mi Japán hivatalos pénzneme?", "Jen", "Jüan", "Von", "Baht"),
			fb("fb-hu-07", "hu", "travel", "Melyik repülőtér Budapest nemzetközi repülőtere?", "Liszt Ferenc", "Kossuth Lajos", "Petőfi Sándor", "Széchenyi István"),
			fb("fb-hu-08", "hu", "geography", "Melyik tenger partján fekszik Dubrovnik?", "Adriai-tenger", "Égei-tenger", "Tirrén-tenger", "Fekete-tenger"),
			fb("fb-hu-09", "hu", "culture", "Melyik városban található a Colosseum?", "Róma", "Athén", "Nápoly", "Firenze"),
			fb("fb-hu-10", "hu", "travel", "Hány csillagot visel az Európai Unió zászlaja?", "12", "10", "15", "27"),
		},
		"en": {
			fb("fb-en-01", "en", "geography", "What is the capital of Portugal?", "Lisbon", "Porto", "Madrid", "Seville"),
			fb("fb-en-02", "en", "geography", "In which country is Machu Picchu located?", "Peru", "Chile", "Bolivia", "Ecuador"),
			fb("fb-en-03", "en", "geography", "Which is the largest non-polar desert in the world?", "Sahara", "Gobi", "Kalahari", "Atacama"),
			fb("fb-en-04", "en", "culture", "In which city does the Sagrada Familia stand?", "Barcelona", "Valencia", "Madrid", "Bilbao"),
			fb("fb-en-05", "en", "culture", "Paella is the national dish of which country?", "Spain", "Italy", "Greece", "Mexico"),
			fb("fb-en-06", "en", "travel", "What is the official currency of Japan?", "Yen", "Yuan", "Won", "Baht"),
			fb("fb-en-07", "en", "travel", "Which airport serves Budapest internationally?", "Ferenc Liszt", "Lajos Kossuth", "Sandor Petofi", "Istvan Szechenyi"),
			fb("fb-en-08", "en", "geography", "On which sea does Dubrovnik lie?", "Adriatic Sea", "Aegean Sea", "Tyrrhenian Sea", "Black Sea"),
			fb("fb-en-09", "en", "culture", "In which city is the Colosseum?", "Rome", "Athens", "Naples", "Florence"),
			fb("fb-en-10", "en", "travel", "How many stars are on the flag of the European Union?", "12", "10", "15", "27"),
		},
	}
}

func fb(id, lang, topic, prompt, correct string, wrong ...string) domain.PoolQuestion {
	return domain.PoolQuestion{
		ID:           id,
		Lang:         lang,
		Topic:        topic,
		Prompt:       prompt,
		CorrectValue: correct,
		WrongPool:    wrong,
	}
}
