package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envmon/pkg/domain"
)

func basicForm() BasicInfoForm {
	return BasicInfoForm{
		ClientID:        "CLIENT_002",
		ProjectName:     "龍潭二廠",
		MonitoringDate:  "2025-07-10",
		MonitoringDays:  2,
		FacilityAddress: "桃園市龍潭區渴望路430號",
	}
}

func advanceToPoints(t *testing.T, w *ProjectWizard, points int) {
	t.Helper()
	ctx := context.Background()
	w.SetBasicInfo(basicForm())
	_, err := w.Next(ctx)
	require.NoError(t, err)
	w.SetPlan(PlanForm{MonitoringType: "作業環境監測", MonitoringPoints: points})
	_, err = w.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, StepPoints, w.Step())
}

func TestWizardGeneratesPointDrafts(t *testing.T) {
	w := NewProjectWizard(newSeededService(t))
	advanceToPoints(t, w, 3)

	drafts := w.Points()
	require.Len(t, drafts, 3)
	for _, d := range drafts {
		assert.Equal(t, domain.PointTypeIndoor, d.Type)
		assert.Equal(t, []string{"噪音", "照度", "溫濕度", "有機溶劑", "粉塵", "重金屬", "酸鹼氣體"}, d.Items)
	}
	drafts[0].Items[0] = "mutated"
	assert.Equal(t, "噪音", w.Points()[0].Items[0])
}

func TestWizardStepValidation(t *testing.T) {
	ctx := context.Background()
	w := NewProjectWizard(newSeededService(t))

	notice, err := w.Next(ctx)
	require.True(t, domain.IsValidationError(err))
	assert.Equal(t, domain.MsgRequired, notice.Message)
	assert.Equal(t, StepBasicInfo, w.Step())

	form := basicForm()
	form.ClientID = "CLIENT_404"
	w.SetBasicInfo(form)
	notice, err = w.Next(ctx)
	require.Error(t, err)
	assert.Equal(t, "找不到客戶資料", notice.Message)

	w.SetBasicInfo(basicForm())
	_, err = w.Next(ctx)
	require.NoError(t, err)

	w.SetPlan(PlanForm{MonitoringType: "不存在的類型", MonitoringPoints: 2})
	_, err = w.Next(ctx)
	require.True(t, domain.IsValidationError(err))
	assert.Equal(t, StepPlan, w.Step())

	w.Prev()
	w.Prev()
	assert.Equal(t, StepBasicInfo, w.Step())
}

func TestWizardSummaryEstimate(t *testing.T) {
	ctx := context.Background()
	w := NewProjectWizard(newSeededService(t))
	assert.Equal(t, "未選擇", w.Summary(ctx).ClientName)

	advanceToPoints(t, w, 2)
	require.NoError(t, w.SetPoint(0, PointDraft{Name: "生產線C區", Type: domain.PointTypeIndoor, Items: []string{"噪音", "照度"}}))
	_, err := w.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, StepSummary, w.Step())

	s := w.Summary(ctx)
	assert.Equal(t, "葡萄王生技股份有限公司", s.ClientName)
	assert.Equal(t, 2, s.PointCount)
	assert.Equal(t, 2+7, s.TotalItems)
	assert.Equal(t, Estimate{Sampling: 50000, Report: 15000, Total: 65000}, s.Estimate)
}

func TestWizardCommitCreatesProject(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)
	w := NewProjectWizard(svc)
	advanceToPoints(t, w, 3)
	require.NoError(t, w.SetPoint(0, PointDraft{Name: "生產線C區", Type: domain.PointTypeIndoor, Items: []string{"噪音"}}))
	require.NoError(t, w.SetPoint(2, PointDraft{Name: "戶外卸貨區", Type: domain.PointTypeOutdoor, Items: []string{"粉塵", "噪音"}}))
	require.Error(t, w.SetPoint(3, PointDraft{Name: "超出"}))

	project, notice, err := w.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, Notice{Level: LevelSuccess, Message: "專案建立成功！"}, notice)
	assert.Equal(t, "YOC25-001", project.ID)
	assert.Equal(t, domain.ProjectStatusQuoting, project.Status)
	assert.Equal(t, "專案建立", project.Progress)
	assert.Equal(t, testNow, project.CreatedDate)
	assert.Equal(t, 2, project.MonitoringPoints)
	require.Len(t, project.SamplingPoints, 2)
	assert.Equal(t, "P001", project.SamplingPoints[0].ID)
	assert.Equal(t, "P003", project.SamplingPoints[1].ID)
	assert.Equal(t, 2, project.SamplingPoints[1].ItemCount)

	client, err := svc.GetClient(ctx, "CLIENT_002")
	require.NoError(t, err)
	assert.Equal(t, 2, client.ProjectCount)

	assert.Equal(t, StepBasicInfo, w.Step())
	assert.Empty(t, w.EditingID())
	assert.Empty(t, w.Points())
}

func TestWizardCommitRequiresNamedPoint(t *testing.T) {
	ctx := context.Background()
	w := NewProjectWizard(newSeededService(t))
	advanceToPoints(t, w, 1)
	_, notice, err := w.Commit(ctx)
	require.True(t, domain.IsValidationError(err))
	assert.Equal(t, domain.MsgRequired, notice.Message)
}

func TestWizardEditPreservesLifecycleFields(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)
	before, err := svc.GetProject(ctx, "YOC114-001")
	require.NoError(t, err)

	w := NewProjectWizard(svc)
	notice, err := w.Edit(ctx, "YOC114-001")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, notice.Level)
	assert.Equal(t, "YOC114-001", w.EditingID())
	require.Len(t, w.Points(), 4)

	basic := w.Basic()
	basic.ProjectName = "松山廠區（複測）"
	w.SetBasicInfo(basic)
	_, err = w.Next(ctx)
	require.NoError(t, err)
	_, err = w.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B1F 停車場（汽車）", w.Points()[0].Name, "names survive regeneration")

	updated, notice, err := w.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "專案更新成功！", notice.Message)
	assert.Equal(t, "松山廠區（複測）", updated.ProjectName)
	assert.Equal(t, before.Status, updated.Status)
	assert.Equal(t, before.Progress, updated.Progress)
	assert.True(t, before.CreatedDate.Equal(updated.CreatedDate))
	assert.Empty(t, w.EditingID())

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 3)
}

func TestWizardCancelLeavesEditMode(t *testing.T) {
	ctx := context.Background()
	w := NewProjectWizard(newSeededService(t))
	_, err := w.Edit(ctx, "YOC114-002")
	require.NoError(t, err)
	w.Cancel()
	assert.Empty(t, w.EditingID())
	assert.Equal(t, StepBasicInfo, w.Step())
	assert.Equal(t, BasicInfoForm{}, w.Basic())
}

func TestProjectDetailStatusProjection(t *testing.T) {
	ctx := context.Background()
	p := NewProjects(newSeededService(t))
	cases := map[string][2]string{
		"YOC114-002": {"未開始", "未送檢"},
		"YOC114-001": {"進行中", "未送檢"},
		"YOC113-015": {"已完成", "已完成"},
	}
	for id, want := range cases {
		detail, err := p.Detail(ctx, id)
		require.NoError(t, err)
		require.NotEmpty(t, detail.Points)
		assert.Equal(t, want[0], detail.Points[0].SamplingStatus, id)
		assert.Equal(t, want[1], detail.Points[0].LabStatus, id)
	}

	updated, _, err := p.SetStatus(ctx, "YOC114-002", domain.ProjectStatusInProgress, "採樣中")
	require.NoError(t, err)
	assert.Equal(t, "採樣中", updated.Progress)
	_, notice, err := p.SetStatus(ctx, "YOC114-002", "暫停", "")
	require.Error(t, err)
	assert.Equal(t, domain.MsgInvalidValue, notice.Message)
}
