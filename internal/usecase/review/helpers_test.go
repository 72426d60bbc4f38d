package review_test

import appUsecase "kyc-backend/internal/usecase/application"

func appUsecaseFields() appUsecase.FieldsInput {
	return appUsecase.FieldsInput{PersonalInfo: appUsecase.PersonalInfoInput{FullName: "Ravi Kumar"}}
}
