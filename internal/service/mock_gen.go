package service

//go:generate mockgen -source=./invitation.go -destination=../mocks/mock_mailer.go -package=mocks Mailer
