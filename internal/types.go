package internal

type DonationType string

const (
	DonationMonetary DonationType = "monetary"
	DonationPhysical DonationType = "physical"
)

type Photo struct {
	ID           int64  `json:"id"`
	Src          string `json:"src"`
	SrcLarge     string `json:"srcLarge"`
	Alt          string `json:"alt"`
	Photographer string `json:"photographer"`
}

// ImportItem is one uploaded row as it moves through the import wizard.
// SelectedPhotoURL nil means undecided, empty means the photo was skipped.
type ImportItem struct {
	RowIndex         int          `json:"rowIndex"`
	Name             string       `json:"name"`
	CategoryNameRaw  string       `json:"categoryNameRaw"`
	CategoryID       *string      `json:"categoryId"`
	TargetAmount     int64        `json:"targetAmount"`
	DonationType     DonationType `json:"donationType"`
	Description      string       `json:"description"`
	PhotoOptions     []Photo      `json:"photoOptions"`
	SelectedPhotoURL *string      `json:"selectedPhotoUrl"`
	IsValid          bool         `json:"isValid"`
	ValidationErrors []string     `json:"validationErrors"`
	IsExcluded       bool         `json:"isExcluded"`
}

type ImportResult struct {
	RowIndex  int    `json:"rowIndex"`
	Name      string `json:"name"`
	Success   bool   `json:"success"`
	ProductID string `json:"productId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BulkItem is a finalized wizard item handed to bulk creation.
type BulkItem struct {
	Name         string       `json:"name" validate:"required,min=1,max=200"`
	Description  string       `json:"description" validate:"required,min=1,max=1000"`
	DonationType DonationType `json:"donationType" validate:"required,oneof=monetary physical"`
	TargetAmount *int64       `json:"targetAmount,omitempty" validate:"omitempty,gt=0"`
	CategoryID   string       `json:"categoryId" validate:"required,uuid"`
	PhotoURL     string       `json:"photoUrl" validate:"required,url"`
	IsPublished  bool         `json:"isPublished"`
}

type Category struct {
	ID        string
	Name      string
	CreatedAt string
	UpdatedAt string
}

type Product struct {
	ID            string
	Name          string
	Description   string
	DonationType  DonationType
	TargetAmount  *int64
	CurrentAmount int64
	IsFulfilled   bool
	IsPublished   bool
	ImagePath     *string
	CategoryIDs   []string
	CreatedAt     string
	UpdatedAt     string
}

type Donation struct {
	ID           string
	ProductID    string
	DonationType DonationType
	Amount       *int64
	DonorName    *string
	DonorPhone   *string
	DonorEmail   *string
	ReceiptPath  *string
	CreatedAt    string
}

type PixSettings struct {
	QRCodeImagePath *string
	CopiaECola      *string
	UpdatedAt       string
}

type DashboardStats struct {
	TotalMonetary     int64
	PhysicalFulfilled int
	PhysicalPending   int
	PublishedCount    int
}

type ReceiptRow struct {
	ID             int
	Provider       string
	MessageID      string
	Subject        string
	Sender         string
	ReceivedAt     string
	Hash           string
	StoragePath    *string
	DetectedAmount *int64
	Status         string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type ImportRun struct {
	ID         string
	Total      int
	Succeeded  int
	Failed     int
	ReportPath *string
	CreatedAt  string
}
