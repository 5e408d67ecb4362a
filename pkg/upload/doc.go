// Package upload stores the files of submitted forms.
//
// File fields hold a *form.FileValue whose contents stay unread until the
// form is valid. After a successful submit the transport hands the values
// to Persist, which copies each file to a Store and returns where it went:
//
//	store, _ := upload.NewDiskStore("/var/lib/formstate/uploads", 10<<20)
//	stored, err := upload.Persist(ctx, store, "signup", values)
//
// S3Store writes to an S3 bucket through aws-sdk-go-v2:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := upload.NewS3Store(s3.NewFromConfig(cfg), "my-bucket", "forms/", 50<<20)
package upload
