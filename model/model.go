package model

import "time"

type FieldType string

const (
	PlainText        FieldType = "Text"
	LongText         FieldType = "LongText"
	Numerical        FieldType = "Numerical"
	Boolean          FieldType = "Boolean"
	SingleChoice     FieldType = "Select"
	MultiChoice      FieldType = "Multiselect"
	Email            FieldType = "Email"
	Phone            FieldType = "Phone"
	Currency         FieldType = "Currency"
	Date             FieldType = "Date"
	URL              FieldType = "URL"
	AlphabeticText   FieldType = "Alpha"
	AlphanumericText FieldType = "Alphanum"
)

func (t FieldType) IsChoice() bool {
	return t == SingleChoice || t == MultiChoice
}

type Language string

const (
	English  Language = "English"
	French   Language = "French"
	Chinese  Language = "Chinese"
	Japanese Language = "Japanese"
	Spanish  Language = "Spanish"
	German   Language = "German"
)

var Languages = []Language{English, French, Chinese, Japanese, Spanish, German}

func (l Language) Supported() bool {
	for _, s := range Languages {
		if l == s {
			return true
		}
	}
	return false
}

type Form struct {
	ID               string     `json:"id"`
	Label            string     `json:"label"`
	Description      *string    `json:"description"`
	FieldsLength     int        `json:"fields_length"`
	Open             bool       `json:"open"`
	SubmissionsLimit *int       `json:"submissions_limit"`
	Submissions      int        `json:"submissions"`
	Deadline         *time.Time `json:"deadline"`
}

type Field struct {
	ID              string    `json:"id"`
	FormID          string    `json:"form_id"`
	Label           string    `json:"label"`
	Description     string    `json:"description"`
	Position        *int      `json:"position"`
	Required        bool      `json:"required"`
	Type            FieldType `json:"field_type"`
	PossibleAnswers *string   `json:"possible_answers"`
	NumberBounds    *string   `json:"number_bounds"`
	TextBounds      *string   `json:"text_bounds"`
}

type Answer struct {
	ID        string  `json:"id,omitempty"`
	FieldID   string  `json:"field_id"`
	SessionID string  `json:"session_id,omitempty"`
	Value     *string `json:"value"`
}

type AnswerSession struct {
	ID        string   `json:"id"`
	FormID    string   `json:"form_id"`
	Answers   []Answer `json:"answers"`
	Submitted bool     `json:"submitted"`
}

// FormTranslation is the backend's atomic translation of a form and all of
// its fields into one language.
type FormTranslation struct {
	Form   Form    `json:"form"`
	Fields []Field `json:"fields"`
}

func Str(s string) *string {
	return &s
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
