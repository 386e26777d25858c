package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name PlayerSource --dir ../usecase --output usecase --outpkg usecasemock --filename player_source_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Predictor --dir ../usecase --output usecase --outpkg usecasemock --filename predictor_mock.go
