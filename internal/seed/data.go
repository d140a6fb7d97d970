package seed

import (
	"time"

	"envmon/pkg/domain"
)

// CompanyName is the laboratory name written to the system settings.
const CompanyName = "友喬檢驗有限公司"

// Version is the data set version written to the system settings.
const Version = "1.0.0"

func utc(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

// Clients returns the reference client records.
func Clients() []domain.Client {
	return []domain.Client{
		{
			ID:           "CLIENT_001",
			CompanyName:  "味全食品工業股份有限公司",
			TaxID:        "11347802",
			ContactName:  "王經理",
			ContactTitle: "環保經理",
			Phone:        "02-2298-8888",
			Email:        "wang@weichuan.com.tw",
			Address:      "台北市松山區八德路四段575巷20號",
			CreatedDate:  utc(2023, time.January, 15, 9, 0),
			Status:       domain.ClientStatusActive,
		},
		{
			ID:           "CLIENT_002",
			CompanyName:  "葡萄王生技股份有限公司",
			TaxID:        "11880517",
			ContactName:  "陳協理",
			ContactTitle: "品保協理",
			Phone:        "03-411-6789",
			Email:        "chen@grapeking.com.tw",
			Address:      "桃園市龍潭區渴望路428號",
			CreatedDate:  utc(2023, time.February, 20, 10, 30),
			Status:       domain.ClientStatusActive,
		},
		{
			ID:           "CLIENT_003",
			CompanyName:  "統一企業股份有限公司",
			TaxID:        "73251209",
			ContactName:  "林主任",
			ContactTitle: "環境主任",
			Phone:        "06-253-6789",
			Email:        "lin@uni-president.com.tw",
			Address:      "台南市永康區鹽行路338號",
			CreatedDate:  utc(2023, time.March, 10, 11, 15),
			Status:       domain.ClientStatusActive,
		},
	}
}

func pt(id, name, description string, items ...string) domain.SamplingPoint {
	return domain.SamplingPoint{ID: id, Name: name, Description: description, ItemCount: len(items), Items: append([]string(nil), items...)}
}

// Projects returns the reference projects. Their clients are those of Clients.
func Projects() []domain.Project {
	officeAir := []string{"甲醛(HCHO)", "一氧化碳(CO)", "二氧化碳(CO2)", "TVOC", "溫度", "相對濕度", "懸浮微粒(PM10)", "細懸浮微粒(PM2.5)"}
	parking := []string{"一氧化碳(CO)", "二氧化碳(CO2)", "溫度", "相對濕度", "風速"}
	boundary := []string{"空氣品質", "噪音振動", "PM10", "PM2.5"}
	receptor := []string{"空氣品質", "PM10", "PM2.5"}

	return []domain.Project{
		{
			ID:                 "YOC114-001",
			ClientID:           "CLIENT_001",
			ProjectName:        "松山廠區",
			MonitoringDate:     "2025-03-20",
			MonitoringDays:     1,
			FacilityAddress:    "台北市松山區八德路四段575巷20號3樓",
			ProjectDescription: "標準室內空氣品質監測專案",
			Status:             domain.ProjectStatusInProgress,
			Progress:           "計畫書完成",
			CreatedDate:        utc(2025, time.February, 15, 9, 0),
			MonitoringType:     "室內空氣品質監測",
			MonitoringPoints:   4,
			MonitoringItems:    []string{"甲醛(HCHO)", "二氧化碳(CO2)", "一氧化碳(CO)", "臭氧(O3)", "懸浮微粒(PM10)", "細懸浮微粒(PM2.5)", "溫度", "相對濕度"},
			SamplingPoints: []domain.SamplingPoint{
				pt("P001", "B1F 停車場（汽車）", "地下一樓汽車停車區域", parking...),
				pt("P002", "B1F 停車場（機車）", "地下一樓機車停車區域", parking...),
				pt("P003", "A棟1F 大廳", "一樓主要出入口大廳", officeAir...),
				pt("P004", "A棟1F 聯合辦公室", "一樓開放式辦公區域",
					"甲醛(HCHO)", "一氧化碳(CO)", "二氧化碳(CO2)", "TVOC", "臭氧(O3)", "溫度", "相對濕度", "懸浮微粒(PM10)", "細懸浮微粒(PM2.5)", "細菌"),
			},
		},
		{
			ID:                 "YOC114-002",
			ClientID:           "CLIENT_002",
			ProjectName:        "龍潭廠區",
			MonitoringDate:     "2025-03-25",
			MonitoringDays:     2,
			FacilityAddress:    "桃園市龍潭區渴望路428號",
			ProjectDescription: "作業環境監測專案",
			Status:             domain.ProjectStatusQuoting,
			Progress:           "待確認",
			CreatedDate:        utc(2025, time.February, 20, 10, 30),
			MonitoringType:     "作業環境監測",
			MonitoringPoints:   6,
			MonitoringItems:    []string{"噪音", "照度", "溫濕度", "有機溶劑", "粉塵"},
			SamplingPoints: []domain.SamplingPoint{
				pt("P001", "生產線A區", "主要生產線區域", "噪音", "照度", "溫濕度", "粉塵", "有機溶劑", "二氧化碳(CO2)"),
				pt("P002", "生產線B區", "次要生產線區域", "噪音", "照度", "溫濕度", "粉塵", "有機溶劑"),
				pt("P003", "包裝區", "產品包裝作業區", "噪音", "照度", "溫濕度", "懸浮微粒(PM10)"),
				pt("P004", "倉庫區", "原料及成品倉庫", "溫濕度", "粉塵", "照度"),
				pt("P005", "辦公區A", "管理人員辦公區域", "噪音", "照度", "溫濕度", "二氧化碳(CO2)"),
				pt("P006", "辦公區B", "行政人員辦公區域", "噪音", "照度", "溫濕度", "二氧化碳(CO2)"),
			},
		},
		{
			ID:                 "YOC113-015",
			ClientID:           "CLIENT_003",
			ProjectName:        "永康廠區",
			MonitoringDate:     "2024-12-15",
			MonitoringDays:     3,
			FacilityAddress:    "台南市永康區鹽行路338號",
			ProjectDescription: "年度環境影響評估",
			Status:             domain.ProjectStatusCompleted,
			Progress:           "報告已交付",
			CreatedDate:        utc(2024, time.November, 1, 8, 0),
			MonitoringType:     "環境影響評估",
			MonitoringPoints:   8,
			MonitoringItems:    []string{"空氣品質", "噪音振動", "水質", "土壤"},
			SamplingPoints: []domain.SamplingPoint{
				pt("P001", "廠界北側", "廠區北側邊界監測點", boundary...),
				pt("P002", "廠界東側", "廠區東側邊界監測點", boundary...),
				pt("P003", "廠界南側", "廠區南側邊界監測點", boundary...),
				pt("P004", "廠界西側", "廠區西側邊界監測點", boundary...),
				pt("P005", "敏感受體1", "鄰近住宅區監測點", receptor...),
				pt("P006", "敏感受體2", "鄰近學校監測點", receptor...),
				pt("P007", "水質監測點1", "廠區排水口", "水質"),
				pt("P008", "土壤監測點1", "廠區內土壤監測", "土壤"),
			},
		},
	}
}

// MonitoringItems returns the item vocabulary of each monitoring type.
func MonitoringItems() domain.MonitoringCatalog {
	return domain.MonitoringCatalog{
		"室內空氣品質監測": {"甲醛(HCHO)", "二氧化碳(CO2)", "一氧化碳(CO)", "臭氧(O3)", "懸浮微粒(PM10)", "細懸浮微粒(PM2.5)", "溫度", "相對濕度"},
		"作業環境監測":   {"噪音", "照度", "溫濕度", "有機溶劑", "粉塵", "重金屬", "酸鹼氣體"},
		"環境影響評估":   {"空氣品質", "噪音振動", "水質", "土壤", "生態環境"},
		"特殊有害物質監測": {"石綿", "戴奧辛", "PAHs", "VOCs", "重金屬", "農藥殘留"},
	}
}

// MonitoringTypes lists the catalog keys in display order.
var MonitoringTypes = []string{"室內空氣品質監測", "作業環境監測", "環境影響評估", "特殊有害物質監測"}
